package numgen

import (
	"strconv"
	"strings"

	"github.com/ceyewan/numkit/xerrors"
)

const (
	// minSeqWidth / maxSeqWidth 序列宽度的合法区间；
	// 20 覆盖 64 位计数器十进制表示的最大位数
	minSeqWidth = 1
	maxSeqWidth = 20
)

// tokenKind 模板变量类型
type tokenKind int

const (
	tokenLiteral tokenKind = iota // 字面量
	tokenPrefix                   // {prefix}
	tokenYear                     // {year}
	tokenMonth                    // {month}
	tokenSeq                      // {SEQ} / {SEQ:N}
)

// token 解析后的模板片段
type token struct {
	kind    tokenKind
	literal string // kind == tokenLiteral 时有效
	width   int64  // kind == tokenSeq 且显式指定 {SEQ:N} 时大于 0
}

// PrefixRule 一条已注册的前缀规则，注册成功后不可变更
type PrefixRule struct {
	PrefixKey  string `json:"prefixKey"`
	Format     string `json:"format"`
	SeqLength  int64  `json:"seqLength"`
	InitialSeq int64  `json:"initialSeq"`

	tokens []token
}

// seqWidth 返回该规则的有效序列宽度：
// 模板显式指定 {SEQ:N} 时取 N，否则取 SeqLength
func (r *PrefixRule) seqWidth() int64 {
	for _, tok := range r.tokens {
		if tok.kind == tokenSeq && tok.width > 0 {
			return tok.width
		}
	}
	return r.SeqLength
}

// ParseRule 解析并校验一条前缀规则。
//
// 校验是全量的：格式错误与长度错误相互独立，所有违规项合并后
// 一次性返回（xerrors.MultiError），而不是只报告第一个。
// 返回错误时不产生任何状态变更。
func ParseRule(prefixKey, format string, seqLength, initialSeq int64) (*PrefixRule, error) {
	var errs []error

	if prefixKey == "" {
		errs = append(errs, xerrors.WithCode(ErrValidation, "prefix_key_empty"))
	}
	if seqLength < minSeqWidth || seqLength > maxSeqWidth {
		errs = append(errs, xerrors.WithCode(ErrInvalidLength, "seq_length_out_of_range"))
	}
	if initialSeq < 0 {
		errs = append(errs, xerrors.WithCode(ErrValidation, "initial_seq_negative"))
	}

	tokens, parseErrs := parseFormat(format)
	errs = append(errs, parseErrs...)

	if err := xerrors.Combine(errs...); err != nil {
		return nil, err
	}

	return &PrefixRule{
		PrefixKey:  prefixKey,
		Format:     format,
		SeqLength:  seqLength,
		InitialSeq: initialSeq,
		tokens:     tokens,
	}, nil
}

// parseFormat 按固定的非递归文法切分模板：
// 变量形如 {identifier} 或 {identifier:integer}，其余为字面量。
func parseFormat(format string) ([]token, []error) {
	var (
		tokens   []token
		errs     []error
		seqCount int
	)

	var literal strings.Builder
	flushLiteral := func() {
		if literal.Len() > 0 {
			tokens = append(tokens, token{kind: tokenLiteral, literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(format); {
		ch := format[i]
		if ch != '{' {
			literal.WriteByte(ch)
			i++
			continue
		}

		end := strings.IndexByte(format[i:], '}')
		if end < 0 {
			errs = append(errs, xerrors.WithCode(ErrInvalidFormat, "unterminated_variable"))
			// 剩余部分按字面量处理，继续收集其他错误
			literal.WriteString(format[i:])
			break
		}

		body := format[i+1 : i+end]
		i += end + 1

		flushLiteral()

		name, widthSpec, hasWidth := strings.Cut(body, ":")

		// 宽度修饰只对序列变量有意义，其他变量上的 ":N" 按格式错误拒绝
		if hasWidth && name != "SEQ" {
			errs = append(errs, xerrors.WithCode(ErrInvalidFormat, "unexpected_width"))
		}

		switch name {
		case "prefix":
			tokens = append(tokens, token{kind: tokenPrefix})
		case "year":
			tokens = append(tokens, token{kind: tokenYear})
		case "month":
			tokens = append(tokens, token{kind: tokenMonth})
		case "SEQ":
			seqCount++
			tok := token{kind: tokenSeq}
			if hasWidth {
				width, err := strconv.ParseInt(widthSpec, 10, 64)
				if err != nil {
					errs = append(errs, xerrors.WithCode(ErrInvalidFormat, "invalid_seq_width"))
				} else if width < minSeqWidth || width > maxSeqWidth {
					errs = append(errs, xerrors.WithCode(ErrInvalidLength, "seq_width_out_of_range"))
				} else {
					tok.width = width
				}
			}
			tokens = append(tokens, tok)
		default:
			errs = append(errs, xerrors.WithCode(ErrInvalidFormat, "unknown_variable"))
		}
	}
	flushLiteral()

	// 模板必须恰好包含一个序列变量
	if seqCount == 0 {
		errs = append(errs, xerrors.WithCode(ErrInvalidFormat, "missing_seq_token"))
	} else if seqCount > 1 {
		errs = append(errs, xerrors.WithCode(ErrInvalidFormat, "duplicate_seq_token"))
	}

	return tokens, errs
}
