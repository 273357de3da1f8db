package numgen

import "github.com/ceyewan/numkit/xerrors"

var (
	// ErrInvalidFormat 模板缺少/重复 SEQ 变量或包含未知变量
	ErrInvalidFormat = xerrors.New("numgen: invalid format template")

	// ErrInvalidLength 序列宽度超出 [1, 20] 范围
	ErrInvalidLength = xerrors.New("numgen: sequence length out of range")

	// ErrValidation 其他非法输入（如负的起始序号）
	ErrValidation = xerrors.New("numgen: invalid input")

	// ErrPrefixExists 前缀键已注册（注册是一次性的，不允许覆盖）
	ErrPrefixExists = xerrors.New("numgen: prefix already exists")

	// ErrPrefixNotFound 前缀键未注册
	ErrPrefixNotFound = xerrors.New("numgen: prefix not registered")

	// ErrStoreTimeout 计数器存储调用超时
	ErrStoreTimeout = xerrors.New("numgen: counter store timeout")

	// ErrStoreUnavailable 计数器存储不可达
	ErrStoreUnavailable = xerrors.New("numgen: counter store unavailable")

	// ErrSequenceOverflow 计数器溢出；该前缀进入终态，需管理员介入
	ErrSequenceOverflow = xerrors.New("numgen: sequence overflow")

	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("numgen: config is nil")

	// ErrConnectorNil 连接器为空
	ErrConnectorNil = xerrors.New("numgen: connector is nil")
)
