package resume

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Decode 校验原始 JSON 并解码为 Record。
// 任何结构问题都返回 SchemaViolation（带出错路径），不会返回部分解码的记录。
func Decode(raw []byte) (Record, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Record{}, errcode.NewSchemaViolation("(root)", "empty document")
	}

	s, err := loadSchema()
	if err != nil {
		return Record{}, fmt.Errorf("load resume schema: %w", err)
	}

	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		// 非法 JSON 由加载器报告
		return Record{}, errcode.NewSchemaViolation("(root)", err.Error())
	}
	if !res.Valid() {
		errs := res.Errors()
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.String())
		}
		return Record{}, errcode.NewSchemaViolation(errs[0].Field(), strings.Join(msgs, "; "))
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, errcode.NewSchemaViolation("(root)", err.Error())
	}
	rec.Normalize()
	return rec, nil
}

// Encode 序列化记录的规范化副本，空列表编码为 []。
func Encode(rec Record) ([]byte, error) {
	rec.Normalize()
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode resume record: %w", err)
	}
	return data, nil
}
