// Package fonts 提供画布绘制与排版估算共用的字体。
// 度量与绘制必须通过同一个 key 取得同一个 font.Face，否则命中测试会与绘制结果错位。
package fonts

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Spec 是 "<weight> <size>px <family>" 形式的字体描述。
type Spec struct {
	Weight string
	Size   float64
	Family string
	Italic bool
}

// Key 生成缓存键，与 CSS font 简写同构。
func Key(weight string, size float64, family string) string {
	if weight == "" {
		weight = "normal"
	}
	if family == "" {
		family = "sans-serif"
	}
	return fmt.Sprintf("%s %spx %s", weight, strconv.FormatFloat(size, 'f', -1, 64), family)
}

func (s Spec) Key() string {
	w := s.Weight
	if s.Italic {
		w = "italic " + normalizeWeight(w)
	}
	return Key(w, s.Size, s.Family)
}

// ParseKey 解析 Key 的输出，也接受前置的 "italic"。
func ParseKey(key string) (Spec, error) {
	fields := strings.Fields(key)
	var spec Spec
	if len(fields) > 0 && fields[0] == "italic" {
		spec.Italic = true
		fields = fields[1:]
	}
	if len(fields) < 3 || !strings.HasSuffix(fields[1], "px") {
		return Spec{}, fmt.Errorf("invalid font key %q", key)
	}
	size, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "px"), 64)
	if err != nil || size <= 0 {
		return Spec{}, fmt.Errorf("invalid font size in %q", key)
	}
	spec.Weight = fields[0]
	spec.Size = size
	spec.Family = strings.Join(fields[2:], " ")
	return spec, nil
}

func normalizeWeight(w string) string {
	if w == "" {
		return "normal"
	}
	return w
}

func isBold(weight string) bool {
	switch strings.ToLower(weight) {
	case "bold", "bolder":
		return true
	}
	n, err := strconv.Atoi(weight)
	return err == nil && n >= 600
}

func isMono(family string) bool {
	f := strings.ToLower(family)
	return strings.Contains(f, "mono") || strings.Contains(f, "courier") || strings.Contains(f, "consolas")
}

var (
	parseOnce sync.Once
	parsed    map[string]*sfnt.Font
	parseErr  error
)

func loadFonts() (map[string]*sfnt.Font, error) {
	parseOnce.Do(func() {
		sources := map[string][]byte{
			"regular":  goregular.TTF,
			"bold":     gobold.TTF,
			"italic":   goitalic.TTF,
			"mono":     gomono.TTF,
			"monobold": gomonobold.TTF,
		}
		parsed = make(map[string]*sfnt.Font, len(sources))
		for name, ttf := range sources {
			f, err := opentype.Parse(ttf)
			if err != nil {
				parseErr = fmt.Errorf("parse %s font: %w", name, err)
				return
			}
			parsed[name] = f
		}
	})
	return parsed, parseErr
}

func variant(spec Spec) string {
	switch {
	case isMono(spec.Family) && isBold(spec.Weight):
		return "monobold"
	case isMono(spec.Family):
		return "mono"
	case isBold(spec.Weight):
		return "bold"
	case spec.Italic:
		return "italic"
	}
	return "regular"
}

// Cache 按 key 缓存 font.Face。
// font.Face 不是并发安全的，每个绘制/排版会话应持有自己的 Cache。
type Cache struct {
	mu    sync.Mutex
	faces map[string]font.Face
}

func NewCache() *Cache {
	return &Cache{faces: make(map[string]font.Face)}
}

// Face 返回 key 对应的字体，首次访问时创建。
func (c *Cache) Face(key string) (font.Face, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.faces[key]; ok {
		return f, nil
	}

	spec, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	all, err := loadFonts()
	if err != nil {
		return nil, err
	}
	// DPI 72 时 Size 的单位即像素
	face, err := opentype.NewFace(all[variant(spec)], &opentype.FaceOptions{
		Size:    spec.Size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face %q: %w", key, err)
	}
	c.faces[key] = face
	return face, nil
}

// Measure 返回文本的前进宽度（像素）。
func (c *Cache) Measure(key, text string) (float64, error) {
	face, err := c.Face(key)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(font.MeasureString(face, text)) / 64, nil
}

// LineHeight 返回推荐行高（像素）。
func (c *Cache) LineHeight(key string) (float64, error) {
	face, err := c.Face(key)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(face.Metrics().Height) / 64, nil
}

// Close 释放所有已创建的字体。
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for k, f := range c.faces {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.faces, k)
	}
	return firstErr
}
