package resume

import "strings"

// Record 是简历的规范化结构化数据，存储在 CV 文档的 Content(JSONB) 中。
// 所有列表字段在 Normalize 之后都不为 nil。
type Record struct {
	PersonalInfo   PersonalInfo `json:"personalInfo"`
	Education      []Education  `json:"education"`
	Experience     []Experience `json:"experience"`
	Skills         []SkillGroup `json:"skills"`
	Certifications []string     `json:"certifications"`
	Languages      []Language   `json:"languages"`
	Hobbies        []string     `json:"hobbies"`
}

// PersonalInfo 描述简历抬头信息。
type PersonalInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	JobTitle string `json:"jobTitle"`
	Summary  string `json:"summary"`
}

// Education 表示一段教育经历。
type Education struct {
	ID          string `json:"id,omitempty"`
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	GPA         string `json:"gpa,omitempty"`
	Description string `json:"description,omitempty"`
}

// Experience 表示一段工作经历。Current 为 true 时 EndDate 被忽略。
type Experience struct {
	ID          string `json:"id,omitempty"`
	Company     string `json:"company"`
	Position    string `json:"position"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
	Current     bool   `json:"current"`
}

// SkillGroup 是按类别分组的技能列表。
type SkillGroup struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

// Language 表示语言能力。
type Language struct {
	ID          string `json:"id,omitempty"`
	Language    string `json:"language"`
	Proficiency string `json:"proficiency"`
}

// PresentLabel 是在职经历结束日期的展示文本。
const PresentLabel = "Present"

// Normalize 将缺省的列表字段补为空切片。
func (r *Record) Normalize() {
	if r.Education == nil {
		r.Education = []Education{}
	}
	if r.Experience == nil {
		r.Experience = []Experience{}
	}
	if r.Skills == nil {
		r.Skills = []SkillGroup{}
	}
	for i := range r.Skills {
		if r.Skills[i].Items == nil {
			r.Skills[i].Items = []string{}
		}
	}
	if r.Certifications == nil {
		r.Certifications = []string{}
	}
	if r.Languages == nil {
		r.Languages = []Language{}
	}
	if r.Hobbies == nil {
		r.Hobbies = []string{}
	}
}

// Empty 返回一份没有内容但列表均已初始化的记录。
func Empty() Record {
	var r Record
	r.Normalize()
	return r
}

// DisplayEnd 返回渲染时显示的结束日期，在职时为 "Present"。
func (e Experience) DisplayEnd() string {
	if e.Current {
		return PresentLabel
	}
	return e.EndDate
}

// DateRange 格式化为 "start - end"，空的一侧省略。
func DateRange(start, end string) string {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		return ""
	case start == "":
		return end
	case end == "":
		return start
	default:
		return start + " - " + end
	}
}

// AllSkills 按类别顺序、再按条目顺序展开全部技能。
func (r Record) AllSkills() []string {
	out := make([]string, 0)
	for _, g := range r.Skills {
		for _, item := range g.Items {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			out = append(out, item)
		}
	}
	return out
}

// ContactLine 用 " | " 连接非空的邮箱、电话、地址。
func (p PersonalInfo) ContactLine() string {
	parts := make([]string, 0, 3)
	for _, v := range []string{p.Email, p.Phone, p.Address} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " | ")
}

// SplitBullets 将自由文本按行拆分为要点，丢弃空行。
// 每行只去掉一个行首符号（-、•、*）及其后的空白，"**Led** team" 这类强调标记保持原样。
func SplitBullets(text string) []string {
	out := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = stripBulletGlyph(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func stripBulletGlyph(line string) string {
	for _, glyph := range []string{"-", "•", "*"} {
		rest, ok := strings.CutPrefix(line, glyph)
		if !ok {
			continue
		}
		// "**" 开头是强调而不是项目符号
		if glyph == "*" && strings.HasPrefix(rest, "*") {
			return line
		}
		return strings.TrimSpace(rest)
	}
	return line
}
