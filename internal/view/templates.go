package view

// cssTemplate 是模板样式表。分页测量与 PDF 打印共用，保证预览与 PDF 一致。
const cssTemplate = `
@page {
    size: {{.Profile.CSSSize}};
}
* {
    box-sizing: border-box;
}
html, body {
    margin: 0;
    padding: 0;
    -webkit-print-color-adjust: exact;
    print-color-adjust: exact;
}
body {
    font-family: '{{css .Style.Page.FontFamily}}', sans-serif;
    font-size: {{px .Style.Page.FontSize}};
    color: {{css .Style.Page.Color}};
    background: {{css .Style.Page.Background}};
    line-height: 1.4;
}
.cv-page {
    width: {{px .Profile.Width}};
    background: {{css .Style.Page.Background}};
}
@media screen {
    .cv-page {
        min-height: {{px .Profile.Height}};
        padding: 0 0 {{in .Margin}} 0;
    }
}
.cv-header {
    position: relative;
    left: {{px .Style.Header.X}};
    margin-top: {{px .Style.Header.Y}};
    width: {{px .Style.Header.Width}};
    max-width: 100%;
    min-height: {{px .Style.Header.Height}};
    padding: {{px .Style.Header.Padding}};
    background: {{css .Style.Header.Background}};
}
.cv-header h1 {
    margin: 0;
    font-size: {{px .Style.Header.TitleSize}};
    font-weight: {{css .Style.Header.TitleWeight}};
    color: {{css .Style.Header.TitleColor}};
    line-height: 1;
}
.cv-header .cv-job-title {
    margin: {{px .Style.Header.SubtitleSpacing}} 0 0 0;
    font-size: {{px .Style.Header.SubtitleSize}};
    font-weight: {{css .Style.Header.SubtitleWeight}};
    color: {{css .Style.Header.SubtitleColor}};
    line-height: 1;
}
.cv-header .cv-contact {
    margin: 8px 0 0 0;
    color: {{css .Style.Header.SubtitleColor}};
}
.cv-summary, .cv-section-title, .cv-entry {
    margin-left: 40px;
    margin-right: 40px;
}
.cv-summary {
    margin-top: 16px;
}
.cv-section-title {
    margin-top: 20px;
    margin-bottom: 8px;
    padding-bottom: 4px;
    border-bottom: 2px solid {{css .Style.Page.Accent}};
}
.cv-entry {
    margin-top: 0;
    margin-bottom: 10px;
}
.cv-entry h3 {
    margin: 0;
    font-size: 1.05em;
}
.cv-entry .cv-dates {
    margin: 2px 0;
    color: #6b7280;
}
.cv-entry ul {
    margin: 4px 0 0 0;
    padding-left: 18px;
}
[data-field-path] {
    cursor: pointer;
}
`

// bodyTemplate 输出流式内容。每个顶层元素都是分页的最小单位，
// 可编辑的文本节点带有 data-field-path，供前端回写字段。
const bodyTemplate = `<header class="cv-header">
<h1 data-field-path="personalInfo.fullName">{{.Record.PersonalInfo.FullName}}</h1>
{{- if nonEmpty .Record.PersonalInfo.JobTitle}}
<p class="cv-job-title" data-field-path="personalInfo.jobTitle">{{.Record.PersonalInfo.JobTitle}}</p>
{{- end}}
{{- if nonEmpty .Record.PersonalInfo.ContactLine}}
<p class="cv-contact">
{{- if nonEmpty .Record.PersonalInfo.Email}}<span data-field-path="personalInfo.email">{{.Record.PersonalInfo.Email}}</span>{{end}}
{{- if nonEmpty .Record.PersonalInfo.Phone}} <span data-field-path="personalInfo.phone">{{.Record.PersonalInfo.Phone}}</span>{{end}}
{{- if nonEmpty .Record.PersonalInfo.Address}} <span data-field-path="personalInfo.address">{{.Record.PersonalInfo.Address}}</span>{{end}}
</p>
{{- end}}
</header>
{{- if nonEmpty .Record.PersonalInfo.Summary}}
<p class="cv-summary" data-field-path="personalInfo.summary">{{.Record.PersonalInfo.Summary}}</p>
{{- end}}
{{- range .Sections}}
<h2 class="cv-section-title" data-section="{{.Name}}" style="font-size: {{px .Style.TitleSize}}; color: {{color .Style.TitleColor}};">{{.Title}}</h2>
{{- $sec := .Style}}
{{- if eq .Name "experience"}}
{{- range $i, $e := .Record.Experience}}
<div class="cv-entry" style="font-size: {{px $sec.ItemSize}}; color: {{color $sec.ItemColor}};">
<h3><span data-field-path="{{itemPath "experience" "position" $e.ID $i}}">{{$e.Position}}</span> at <span data-field-path="{{itemPath "experience" "company" $e.ID $i}}">{{$e.Company}}</span></h3>
{{- with dateRange $e.StartDate $e.DisplayEnd}}
<p class="cv-dates">{{.}}</p>
{{- end}}
{{- $items := bullets $e.Description}}
{{- if $items}}
<ul data-field-path="{{itemPath "experience" "description" $e.ID $i}}">
{{- range $items}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
</div>
{{- end}}
{{- else if eq .Name "education"}}
{{- range $i, $e := .Record.Education}}
<div class="cv-entry" style="font-size: {{px $sec.ItemSize}}; color: {{color $sec.ItemColor}};">
<h3><span data-field-path="{{itemPath "education" "degree" $e.ID $i}}">{{$e.Degree}}</span>{{if nonEmpty $e.Field}}, <span data-field-path="{{itemPath "education" "field" $e.ID $i}}">{{$e.Field}}</span>{{end}} at <span data-field-path="{{itemPath "education" "institution" $e.ID $i}}">{{$e.Institution}}</span></h3>
{{- with dateRange $e.StartDate $e.EndDate}}
<p class="cv-dates">{{.}}</p>
{{- end}}
{{- if nonEmpty $e.GPA}}
<p data-field-path="{{itemPath "education" "gpa" $e.ID $i}}">GPA: {{$e.GPA}}</p>
{{- end}}
{{- if nonEmpty $e.Description}}
<p data-field-path="{{itemPath "education" "description" $e.ID $i}}">{{$e.Description}}</p>
{{- end}}
</div>
{{- end}}
{{- else if eq .Name "skills"}}
{{- range $i, $g := .Record.Skills}}
{{- if $g.Items}}
<p class="cv-entry" style="font-size: {{px $sec.ItemSize}}; color: {{color $sec.ItemColor}};"><strong data-field-path="{{itemPath "skills" "category" $g.Category $i}}">{{$g.Category}}</strong>: <span data-field-path="{{itemPath "skills" "items" $g.Category $i}}">{{join $g.Items ", "}}</span></p>
{{- end}}
{{- end}}
{{- else if eq .Name "certifications"}}
<ul class="cv-entry" style="font-size: {{px $sec.ItemSize}}; color: {{color $sec.ItemColor}};">
{{- range $i, $c := .Record.Certifications}}
<li data-field-path="{{indexPath "certifications" $i}}">{{$c}}</li>
{{- end}}
</ul>
{{- else if eq .Name "languages"}}
{{- range $i, $l := .Record.Languages}}
<p class="cv-entry" style="font-size: {{px $sec.ItemSize}}; color: {{color $sec.ItemColor}};"><span data-field-path="{{itemPath "languages" "language" $l.ID $i}}">{{$l.Language}}</span>{{if nonEmpty $l.Proficiency}} — <span data-field-path="{{itemPath "languages" "proficiency" $l.ID $i}}">{{$l.Proficiency}}</span>{{end}}</p>
{{- end}}
{{- else if eq .Name "hobbies"}}
<p class="cv-entry" style="font-size: {{px $sec.ItemSize}}; color: {{color $sec.ItemColor}};">
{{- range $i, $h := .Record.Hobbies}}{{if $i}}, {{end}}<span data-field-path="{{indexPath "hobbies" $i}}">{{$h}}</span>{{end -}}
</p>
{{- end}}
{{- end}}
`
