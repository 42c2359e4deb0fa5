package errcode

import (
	"errors"
	"strings"
)

// Kind 区分导出流水线中的错误类别，决定是否重试以及对外如何呈现。
type Kind string

const (
	KindSchemaViolation      Kind = "schema_violation"
	KindRenderingUnavailable Kind = "rendering_unavailable"
	KindExportFailed         Kind = "export_failed"
	KindFieldNotFound        Kind = "field_not_found"
	KindUnsupportedFormat    Kind = "unsupported_format"
)

// Error 是导出流水线统一的错误类型。
// Path 仅在 SchemaViolation / FieldNotFound 时有值，Format 仅在导出相关错误时有值。
type Error struct {
	Kind   Kind
	Code   int
	Path   string
	Format string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Format != "" {
		b.WriteString(" [")
		b.WriteString(e.Format)
		b.WriteString("]")
	}
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable 仅 ExportFailed 允许重试（通常是瞬时资源耗尽）。
func (e *Error) Retryable() bool {
	return e.Kind == KindExportFailed
}

// NewSchemaViolation 表示输入记录不符合结构约定，path 指向出错字段。
func NewSchemaViolation(path, msg string) *Error {
	return &Error{Kind: KindSchemaViolation, Code: SchemaViolation, Path: path, Msg: msg}
}

// NewRenderingUnavailable 表示没有可用的排版测量环境。
func NewRenderingUnavailable(err error) *Error {
	return &Error{Kind: KindRenderingUnavailable, Code: RenderingUnavailable, Msg: "no layout measurement surface", Err: err}
}

// NewExportFailed 包装 PDF/DOCX 导出过程中的底层错误。
func NewExportFailed(format string, err error) *Error {
	return &Error{Kind: KindExportFailed, Code: ExportFailed, Format: format, Err: err}
}

// NewFieldNotFound 表示字段路径无法在当前记录中解析。
func NewFieldNotFound(path string) *Error {
	return &Error{Kind: KindFieldNotFound, Code: FieldNotFound, Path: path, Msg: "field path does not resolve"}
}

// NewUnsupportedFormat 表示请求了不支持的导出格式。
func NewUnsupportedFormat(format string) *Error {
	return &Error{Kind: KindUnsupportedFormat, Code: UnsupportedFormat, Format: format, Msg: "unsupported target format"}
}

// IsKind 判断错误链中是否存在指定类别的 *Error。
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// As 取出错误链中的 *Error。
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf 返回错误对应的数字码；未知错误归为 SystemError。
func CodeOf(err error) int {
	if err == nil {
		return OK
	}
	if e, ok := As(err); ok {
		return e.Code
	}
	return SystemError
}
