package resume

import (
	"strconv"
	"strings"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
)

// PathKind 区分标量路径与列表项路径。
type PathKind int

const (
	ScalarPath PathKind = iota + 1
	ListItemPath
)

// FieldPath 指向 Record 中一个可编辑的叶子字段。
//
// 字符串形式（与 DOM 中 data-field-path 一致）：
//
//	personalInfo.fullName            Scalar("personalInfo", "fullName")
//	experience.description.<id>      ListItem("experience", "description", "<id>")
//	certifications.<index>           ListItem("certifications", "", "<index>")
type FieldPath struct {
	Kind    PathKind
	Section string
	List    string
	Field   string
	ID      string
}

// Scalar 构造标量字段路径，例如 personalInfo.fullName。
func Scalar(section, name string) FieldPath {
	return FieldPath{Kind: ScalarPath, Section: section, Field: name}
}

// ListItem 构造列表项子字段路径，id 为条目 ID。
// 字符串列表（certifications、hobbies）子字段为空，以下标作为 id。
func ListItem(list, subfield, id string) FieldPath {
	return FieldPath{Kind: ListItemPath, List: list, Field: subfield, ID: id}
}

var (
	FullNamePath = Scalar("personalInfo", "fullName")
	JobTitlePath = Scalar("personalInfo", "jobTitle")
)

var (
	recordLists = map[string]bool{"experience": true, "education": true, "languages": true, "skills": true}
	stringLists = map[string]bool{"certifications": true, "hobbies": true}
)

// ParseFieldPath 解析字符串形式，无法识别的形状返回 FieldNotFound。
func ParseFieldPath(s string) (FieldPath, error) {
	s = strings.TrimSpace(s)
	head, rest, ok := strings.Cut(s, ".")
	if !ok || head == "" || rest == "" {
		return FieldPath{}, errcode.NewFieldNotFound(s)
	}

	switch {
	case head == "personalInfo":
		if strings.Contains(rest, ".") {
			return FieldPath{}, errcode.NewFieldNotFound(s)
		}
		return Scalar(head, rest), nil
	case recordLists[head]:
		sub, id, ok := strings.Cut(rest, ".")
		if !ok || sub == "" || id == "" {
			return FieldPath{}, errcode.NewFieldNotFound(s)
		}
		return ListItem(head, sub, id), nil
	case stringLists[head]:
		return ListItem(head, "", rest), nil
	}
	return FieldPath{}, errcode.NewFieldNotFound(s)
}

// String 返回字符串形式。
func (p FieldPath) String() string {
	switch p.Kind {
	case ScalarPath:
		return p.Section + "." + p.Field
	case ListItemPath:
		if p.Field == "" {
			return p.List + "." + p.ID
		}
		return p.List + "." + p.Field + "." + p.ID
	}
	return ""
}

// Get 读取路径对应的值。
func (r *Record) Get(p FieldPath) (string, error) {
	ref, err := r.resolve(p)
	if err != nil {
		return "", err
	}
	return ref.get(), nil
}

// Set 写入路径对应的值。路径无法解析时记录保持不变。
func (r *Record) Set(p FieldPath, value string) error {
	ref, err := r.resolve(p)
	if err != nil {
		return err
	}
	return ref.set(value)
}

type fieldRef struct {
	str   *string
	flag  *bool
	items *[]string
}

func (f fieldRef) get() string {
	switch {
	case f.str != nil:
		return *f.str
	case f.flag != nil:
		return strconv.FormatBool(*f.flag)
	case f.items != nil:
		return strings.Join(*f.items, ", ")
	}
	return ""
}

func (f fieldRef) set(value string) error {
	switch {
	case f.str != nil:
		*f.str = value
	case f.flag != nil:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return errcode.NewSchemaViolation("", "expected boolean, got "+strconv.Quote(value))
		}
		*f.flag = b
	case f.items != nil:
		items := make([]string, 0)
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		*f.items = items
	}
	return nil
}

func (r *Record) resolve(p FieldPath) (fieldRef, error) {
	notFound := errcode.NewFieldNotFound(p.String())
	switch p.Kind {
	case ScalarPath:
		if p.Section != "personalInfo" {
			return fieldRef{}, notFound
		}
		if s := personalField(&r.PersonalInfo, p.Field); s != nil {
			return fieldRef{str: s}, nil
		}
	case ListItemPath:
		return r.resolveListItem(p, notFound)
	}
	return fieldRef{}, notFound
}

func (r *Record) resolveListItem(p FieldPath, notFound error) (fieldRef, error) {
	switch p.List {
	case "experience":
		i := indexByID(len(r.Experience), func(i int) string { return r.Experience[i].ID }, p.ID)
		if i < 0 {
			return fieldRef{}, notFound
		}
		e := &r.Experience[i]
		if p.Field == "current" {
			return fieldRef{flag: &e.Current}, nil
		}
		if s := experienceField(e, p.Field); s != nil {
			return fieldRef{str: s}, nil
		}
	case "education":
		i := indexByID(len(r.Education), func(i int) string { return r.Education[i].ID }, p.ID)
		if i < 0 {
			return fieldRef{}, notFound
		}
		if s := educationField(&r.Education[i], p.Field); s != nil {
			return fieldRef{str: s}, nil
		}
	case "languages":
		i := indexByID(len(r.Languages), func(i int) string { return r.Languages[i].ID }, p.ID)
		if i < 0 {
			return fieldRef{}, notFound
		}
		switch p.Field {
		case "language":
			return fieldRef{str: &r.Languages[i].Language}, nil
		case "proficiency":
			return fieldRef{str: &r.Languages[i].Proficiency}, nil
		}
	case "skills":
		// skills 以类别名作为 id
		i := indexByID(len(r.Skills), func(i int) string { return r.Skills[i].Category }, p.ID)
		if i < 0 {
			return fieldRef{}, notFound
		}
		switch p.Field {
		case "category":
			return fieldRef{str: &r.Skills[i].Category}, nil
		case "items":
			return fieldRef{items: &r.Skills[i].Items}, nil
		}
	case "certifications":
		if i, ok := stringIndex(p, len(r.Certifications)); ok {
			return fieldRef{str: &r.Certifications[i]}, nil
		}
	case "hobbies":
		if i, ok := stringIndex(p, len(r.Hobbies)); ok {
			return fieldRef{str: &r.Hobbies[i]}, nil
		}
	}
	return fieldRef{}, notFound
}

// indexByID 先按 ID 匹配；条目本身没有 ID 时才把 id 当作下标。
func indexByID(n int, idAt func(int) string, id string) int {
	for i := 0; i < n; i++ {
		if idAt(i) == id {
			return i
		}
	}
	idx, err := strconv.Atoi(id)
	if err != nil || idx < 0 || idx >= n || idAt(idx) != "" {
		return -1
	}
	return idx
}

func stringIndex(p FieldPath, n int) (int, bool) {
	if p.Field != "" {
		return 0, false
	}
	idx, err := strconv.Atoi(p.ID)
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

func personalField(pi *PersonalInfo, name string) *string {
	switch name {
	case "fullName":
		return &pi.FullName
	case "email":
		return &pi.Email
	case "phone":
		return &pi.Phone
	case "address":
		return &pi.Address
	case "jobTitle":
		return &pi.JobTitle
	case "summary":
		return &pi.Summary
	}
	return nil
}

func experienceField(e *Experience, name string) *string {
	switch name {
	case "company":
		return &e.Company
	case "position":
		return &e.Position
	case "startDate":
		return &e.StartDate
	case "endDate":
		return &e.EndDate
	case "description":
		return &e.Description
	}
	return nil
}

func educationField(e *Education, name string) *string {
	switch name {
	case "institution":
		return &e.Institution
	case "degree":
		return &e.Degree
	case "field":
		return &e.Field
	case "startDate":
		return &e.StartDate
	case "endDate":
		return &e.EndDate
	case "gpa":
		return &e.GPA
	case "description":
		return &e.Description
	}
	return nil
}
