package numgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PartitionMarker 分区模式下发放号码的固定标记后缀，
// 追加在完整渲染结果之后，便于调用方区分临时号码
const PartitionMarker = "-NP"

// Assemble 将规则、计数器值与生成模式渲染为最终号码字符串。
// 确定性、无副作用；{year}/{month} 取渲染时刻的 UTC 墙钟。
func Assemble(rule *PrefixRule, value int64, mode Mode) string {
	return assembleAt(rule, value, mode, time.Now().UTC())
}

// assembleAt 以指定时刻渲染，便于测试
func assembleAt(rule *PrefixRule, value int64, mode Mode, now time.Time) string {
	var b strings.Builder
	for _, tok := range rule.tokens {
		switch tok.kind {
		case tokenLiteral:
			b.WriteString(tok.literal)
		case tokenPrefix:
			b.WriteString(rule.PrefixKey)
		case tokenYear:
			fmt.Fprintf(&b, "%04d", now.Year())
		case tokenMonth:
			fmt.Fprintf(&b, "%02d", int(now.Month()))
		case tokenSeq:
			b.WriteString(padSeq(value, rule.seqWidth()))
		}
	}

	if mode == ModePartitioned {
		b.WriteString(PartitionMarker)
	}
	return b.String()
}

// padSeq 将计数器值左补零到指定宽度；
// 十进制位数超出宽度时完整输出，绝不截断丢位
func padSeq(value int64, width int64) string {
	s := strconv.FormatInt(value, 10)
	if int64(len(s)) >= width {
		return s
	}
	return strings.Repeat("0", int(width)-len(s)) + s
}
