package docmodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/resume"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
)

const janeDoeJSON = `{
  "personalInfo": {"fullName": "Jane Doe", "jobTitle": "Engineer", "email": "j@x.com", "phone": "", "address": "", "summary": ""},
  "experience": [{"id": "e1", "company": "Acme", "position": "Dev", "startDate": "2020", "endDate": "2021", "description": "- Did X\n- Did Y", "current": false}],
  "education": [], "skills": [], "certifications": [], "languages": [], "hobbies": []
}`

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	reg, err := style.NewBuiltinRegistry()
	require.NoError(t, err)
	return NewBuilder(reg)
}

func blocksOfKind(sec Section, kind BlockKind) []Block {
	var out []Block
	for _, b := range sec.Blocks {
		if b.Kind == kind {
			out = append(out, b)
		}
	}
	return out
}

func TestBuildRoundTripScenario(t *testing.T) {
	tree, err := newBuilder(t).BuildRaw(context.Background(), []byte(janeDoeJSON), "classic")
	require.NoError(t, err)

	names := make([]string, 0, len(tree.Sections))
	for _, s := range tree.Sections {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{SectionTitle, SectionExperience}, names)

	exp, ok := tree.Section(SectionExperience)
	require.True(t, ok)
	bullets := blocksOfKind(exp, BulletItem)
	require.Len(t, bullets, 2)
	assert.Equal(t, "Did X", bullets[0].Text())
	assert.Equal(t, "Did Y", bullets[1].Text())

	assert.Equal(t, Block{Kind: Heading, Level: LevelEntry, Runs: []Run{{Text: "Dev at Acme", Bold: true}}}, exp.Blocks[1])
	assert.Equal(t, "2020 - 2021", exp.Blocks[2].Text())

	title, _ := tree.Section(SectionTitle)
	require.Len(t, title.Blocks, 3)
	assert.Equal(t, LevelName, title.Blocks[0].Level)
	assert.Equal(t, "Jane Doe", title.Blocks[0].Text())
	assert.Equal(t, "j@x.com", title.Blocks[1].Text())
	assert.Equal(t, "Engineer", title.Blocks[2].Text())
}

func TestBuildIsIdempotent(t *testing.T) {
	b := newBuilder(t)
	rec, err := resume.Decode([]byte(janeDoeJSON))
	require.NoError(t, err)
	rec.Skills = []resume.SkillGroup{{Category: "a", Items: []string{"Go", "SQL"}}, {Category: "b", Items: []string{"K8s"}}}

	first, err := b.Build(context.Background(), rec, "modern")
	require.NoError(t, err)
	second, err := b.Build(context.Background(), rec, "modern")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildOmitsEmptySections(t *testing.T) {
	rec := resume.Empty()
	rec.PersonalInfo.FullName = "Solo"

	tree, err := newBuilder(t).Build(context.Background(), rec, "")
	require.NoError(t, err)
	require.Len(t, tree.Sections, 1)
	_, ok := tree.Section(SectionExperience)
	assert.False(t, ok)
}

func TestBuildSkillsUseSeparator(t *testing.T) {
	rec := resume.Empty()
	rec.Skills = []resume.SkillGroup{
		{Category: "Languages", Items: []string{"Go", " ", "SQL"}},
		{Category: "Empty", Items: []string{}},
		{Category: "Ops", Items: []string{"Kubernetes"}},
	}

	tree, err := newBuilder(t).Build(context.Background(), rec, "")
	require.NoError(t, err)
	skills, ok := tree.Section(SectionSkills)
	require.True(t, ok)

	para := skills.Blocks[1]
	assert.Equal(t, Paragraph, para.Kind)
	assert.Equal(t, ", ", para.Separator)
	assert.Equal(t, []Run{{Text: "Go"}, {Text: "SQL"}, {Text: "Kubernetes"}}, para.Runs)
	assert.Equal(t, "Go, SQL, Kubernetes", para.Text())
}

func TestBuildEducationAndSupplementSections(t *testing.T) {
	rec := resume.Empty()
	rec.Education = []resume.Education{{Institution: "MIT", Degree: "BSc", Field: "CS", StartDate: "2014", GPA: "3.9"}}
	rec.Experience = []resume.Experience{{Company: "Acme", Position: "Dev", StartDate: "2021", EndDate: "2022", Current: true}}
	rec.Certifications = []string{"CKA", ""}
	rec.Languages = []resume.Language{{Language: "German", Proficiency: "Native"}, {Language: "French"}}
	rec.Hobbies = []string{"Chess", "Climbing"}

	tree, err := newBuilder(t).Build(context.Background(), rec, "")
	require.NoError(t, err)

	exp, _ := tree.Section(SectionExperience)
	assert.Equal(t, "2021 - Present", exp.Blocks[2].Text())
	assert.Empty(t, blocksOfKind(exp, BulletItem))

	edu, ok := tree.Section(SectionEducation)
	require.True(t, ok)
	assert.Equal(t, "BSc, CS at MIT", edu.Blocks[1].Text())
	assert.Equal(t, "2014", edu.Blocks[2].Text())
	assert.Equal(t, "GPA: 3.9", edu.Blocks[3].Text())

	certs, _ := tree.Section(SectionCertifications)
	assert.Len(t, blocksOfKind(certs, BulletItem), 1)

	langs, _ := tree.Section(SectionLanguages)
	assert.Equal(t, "German — Native", langs.Blocks[1].Text())
	assert.Equal(t, "French", langs.Blocks[2].Text())

	hobbies, _ := tree.Section(SectionHobbies)
	assert.Equal(t, "Chess, Climbing", hobbies.Blocks[1].Text())

	order := make([]string, 0)
	for _, s := range tree.Sections {
		order = append(order, s.Name)
	}
	assert.Equal(t, []string{SectionTitle, SectionExperience, SectionEducation, SectionCertifications, SectionLanguages, SectionHobbies}, order)
}

func TestBuildMissingScalarsDegradeToEmpty(t *testing.T) {
	tree, err := newBuilder(t).BuildRaw(context.Background(), []byte(`{"experience":[{"company":"Acme"}]}`), "")
	require.NoError(t, err)

	title, _ := tree.Section(SectionTitle)
	assert.Equal(t, "", title.Blocks[0].Text())
	exp, _ := tree.Section(SectionExperience)
	assert.Equal(t, " at Acme", exp.Blocks[1].Text())
	assert.Len(t, exp.Blocks, 2)
}

func TestBuildRawRejectsMalformedRecord(t *testing.T) {
	tree, err := newBuilder(t).BuildRaw(context.Background(), []byte(`{"experience": {"company": "Acme"}}`), "classic")
	assert.Nil(t, tree)
	require.True(t, errcode.IsKind(err, errcode.KindSchemaViolation))
	e, _ := errcode.As(err)
	assert.Equal(t, "experience", e.Path)
}

func TestBuildUsesTemplateStyle(t *testing.T) {
	b := newBuilder(t)
	tree, err := b.Build(context.Background(), resume.Empty(), "modern")
	require.NoError(t, err)
	assert.Equal(t, "modern", tree.TemplateID)
	assert.Equal(t, "Inter", tree.Font)

	fallback, err := b.Build(context.Background(), resume.Empty(), "does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, style.DefaultID, fallback.TemplateID)
}
