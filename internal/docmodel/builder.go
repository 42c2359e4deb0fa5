package docmodel

import (
	"context"
	"strings"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/resume"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
)

// 区块名称。
const (
	SectionTitle          = "title"
	SectionExperience     = style.SectionExperience
	SectionEducation      = style.SectionEducation
	SectionSkills         = style.SectionSkills
	SectionCertifications = style.SectionCertifications
	SectionLanguages      = style.SectionLanguages
	SectionHobbies        = style.SectionHobbies
)

// 标题层级。
const (
	LevelName    = 1
	LevelSection = 2
	LevelEntry   = 3
)

// Builder 构建文档树。registry 只用于解析模板的字体与强调色，查不到时使用默认样式。
type Builder struct {
	registry style.Registry
}

func NewBuilder(registry style.Registry) *Builder {
	return &Builder{registry: registry}
}

// BuildRaw 先校验原始 JSON；不合法时返回 SchemaViolation，不会构建任何树。
func (b *Builder) BuildRaw(ctx context.Context, raw []byte, templateID string) (*Tree, error) {
	rec, err := resume.Decode(raw)
	if err != nil {
		return nil, err
	}
	return b.Build(ctx, rec, templateID)
}

// Build 按固定顺序输出：抬头、工作经历、教育经历、技能、证书、语言、兴趣。
// 源列表为空的区块整体省略。相同输入总是得到相同的树。
func (b *Builder) Build(ctx context.Context, rec resume.Record, templateID string) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec.Normalize()

	st := style.Resolve(ctx, b.registry, templateID)
	tree := &Tree{
		TemplateID: st.ID,
		Title:      strings.TrimSpace(rec.PersonalInfo.FullName),
		Font:       st.Page.FontFamily,
		FontSize:   st.Page.FontSize,
		Accent:     st.Page.Accent,
	}

	tree.Sections = append(tree.Sections, titleSection(rec.PersonalInfo))
	for _, build := range []func(resume.Record) (Section, bool){
		experienceSection,
		educationSection,
		skillsSection,
		certificationsSection,
		languagesSection,
		hobbiesSection,
	} {
		if sec, ok := build(rec); ok {
			tree.Sections = append(tree.Sections, sec)
		}
	}
	return tree, nil
}

func heading(level int, text string) Block {
	return Block{Kind: Heading, Level: level, Runs: []Run{{Text: text, Bold: true}}}
}

func paragraph(text string) Block {
	return Block{Kind: Paragraph, Runs: []Run{{Text: text}}}
}

func bullet(text string) Block {
	return Block{Kind: BulletItem, Runs: []Run{{Text: text}}}
}

func listParagraph(items []string) Block {
	runs := make([]Run, 0, len(items))
	for _, it := range items {
		runs = append(runs, Run{Text: it})
	}
	return Block{Kind: Paragraph, Runs: runs, Separator: ", "}
}

func titleSection(p resume.PersonalInfo) Section {
	sec := Section{Name: SectionTitle}
	sec.Blocks = append(sec.Blocks, heading(LevelName, strings.TrimSpace(p.FullName)))
	if contact := p.ContactLine(); contact != "" {
		sec.Blocks = append(sec.Blocks, paragraph(contact))
	}
	if title := strings.TrimSpace(p.JobTitle); title != "" {
		sec.Blocks = append(sec.Blocks, heading(LevelSection, title))
	}
	if summary := strings.TrimSpace(p.Summary); summary != "" {
		sec.Blocks = append(sec.Blocks, paragraph(summary))
	}
	return sec
}

func experienceSection(rec resume.Record) (Section, bool) {
	if len(rec.Experience) == 0 {
		return Section{}, false
	}
	sec := Section{Name: SectionExperience, Blocks: []Block{heading(LevelSection, "Experience")}}
	for _, e := range rec.Experience {
		sec.Blocks = append(sec.Blocks, heading(LevelEntry, e.Position+" at "+e.Company))
		if dates := resume.DateRange(e.StartDate, e.DisplayEnd()); dates != "" {
			sec.Blocks = append(sec.Blocks, paragraph(dates))
		}
		for _, line := range resume.SplitBullets(e.Description) {
			sec.Blocks = append(sec.Blocks, bullet(line))
		}
	}
	return sec, true
}

func educationSection(rec resume.Record) (Section, bool) {
	if len(rec.Education) == 0 {
		return Section{}, false
	}
	sec := Section{Name: SectionEducation, Blocks: []Block{heading(LevelSection, "Education")}}
	for _, e := range rec.Education {
		degree := e.Degree
		if field := strings.TrimSpace(e.Field); field != "" {
			degree += ", " + field
		}
		sec.Blocks = append(sec.Blocks, heading(LevelEntry, degree+" at "+e.Institution))
		if dates := resume.DateRange(e.StartDate, e.EndDate); dates != "" {
			sec.Blocks = append(sec.Blocks, paragraph(dates))
		}
		if gpa := strings.TrimSpace(e.GPA); gpa != "" {
			sec.Blocks = append(sec.Blocks, paragraph("GPA: "+gpa))
		}
		if desc := strings.TrimSpace(e.Description); desc != "" {
			sec.Blocks = append(sec.Blocks, paragraph(desc))
		}
	}
	return sec, true
}

func skillsSection(rec resume.Record) (Section, bool) {
	items := rec.AllSkills()
	if len(items) == 0 {
		return Section{}, false
	}
	return Section{Name: SectionSkills, Blocks: []Block{
		heading(LevelSection, "Skills"),
		listParagraph(items),
	}}, true
}

func certificationsSection(rec resume.Record) (Section, bool) {
	items := nonBlank(rec.Certifications)
	if len(items) == 0 {
		return Section{}, false
	}
	sec := Section{Name: SectionCertifications, Blocks: []Block{heading(LevelSection, "Certifications")}}
	for _, c := range items {
		sec.Blocks = append(sec.Blocks, bullet(c))
	}
	return sec, true
}

func languagesSection(rec resume.Record) (Section, bool) {
	if len(rec.Languages) == 0 {
		return Section{}, false
	}
	sec := Section{Name: SectionLanguages, Blocks: []Block{heading(LevelSection, "Languages")}}
	for _, l := range rec.Languages {
		text := strings.TrimSpace(l.Language)
		if prof := strings.TrimSpace(l.Proficiency); prof != "" {
			text += " — " + prof
		}
		sec.Blocks = append(sec.Blocks, paragraph(text))
	}
	return sec, true
}

func hobbiesSection(rec resume.Record) (Section, bool) {
	items := nonBlank(rec.Hobbies)
	if len(items) == 0 {
		return Section{}, false
	}
	return Section{Name: SectionHobbies, Blocks: []Block{
		heading(LevelSection, "Hobbies"),
		listParagraph(items),
	}}, true
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
