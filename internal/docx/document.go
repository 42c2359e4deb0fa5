package docx

import (
	"encoding/xml"
	"strconv"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/docmodel"
)

// WordprocessingML 元素。encoding/xml 按字面输出带前缀的名称。

type wDocument struct {
	XMLName xml.Name `xml:"w:document"`
	W       string   `xml:"xmlns:w,attr"`
	R       string   `xml:"xmlns:r,attr"`
	Body    wBody    `xml:"w:body"`
}

type wBody struct {
	Paragraphs []wParagraph `xml:"w:p"`
	SectPr     wSectPr      `xml:"w:sectPr"`
}

type wParagraph struct {
	PPr  *wPPr  `xml:"w:pPr,omitempty"`
	Runs []wRun `xml:"w:r"`
}

type wPPr struct {
	PStyle *wVal   `xml:"w:pStyle,omitempty"`
	NumPr  *wNumPr `xml:"w:numPr,omitempty"`
}

type wNumPr struct {
	Ilvl  wVal `xml:"w:ilvl"`
	NumID wVal `xml:"w:numId"`
}

type wVal struct {
	Val string `xml:"w:val,attr"`
}

type wRun struct {
	RPr  *wRPr `xml:"w:rPr,omitempty"`
	Text wText `xml:"w:t"`
}

type wRPr struct {
	Bold   *wEmpty `xml:"w:b,omitempty"`
	Italic *wEmpty `xml:"w:i,omitempty"`
}

type wEmpty struct{}

type wText struct {
	Space string `xml:"xml:space,attr,omitempty"`
	Value string `xml:",chardata"`
}

type wSectPr struct {
	PgSz  wPgSz  `xml:"w:pgSz"`
	PgMar wPgMar `xml:"w:pgMar"`
}

type wPgSz struct {
	W int `xml:"w:w,attr"`
	H int `xml:"w:h,attr"`
}

type wPgMar struct {
	Top    int `xml:"w:top,attr"`
	Right  int `xml:"w:right,attr"`
	Bottom int `xml:"w:bottom,attr"`
	Left   int `xml:"w:left,attr"`
	Header int `xml:"w:header,attr"`
	Footer int `xml:"w:footer,attr"`
	Gutter int `xml:"w:gutter,attr"`
}

const (
	nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	// bulletNumID 对应 numbering.xml 中的项目符号列表。
	bulletNumID = "1"

	twipsPerInch = 1440
)

func newRun(r docmodel.Run) wRun {
	run := wRun{Text: wText{Value: r.Text}}
	if r.Text != "" && (r.Text[0] == ' ' || r.Text[len(r.Text)-1] == ' ') {
		run.Text.Space = "preserve"
	}
	if r.Bold || r.Italic {
		run.RPr = &wRPr{}
		if r.Bold {
			run.RPr.Bold = &wEmpty{}
		}
		if r.Italic {
			run.RPr.Italic = &wEmpty{}
		}
	}
	return run
}

// styleFor 返回块对应的段落样式 ID。抬头区块的一级标题（姓名）使用 Title。
func styleFor(section string, b docmodel.Block) string {
	switch b.Kind {
	case docmodel.Heading:
		level := b.Level
		if level < 1 {
			level = 1
		}
		if level > 3 {
			level = 3
		}
		if section == docmodel.SectionTitle && level == docmodel.LevelName {
			return "Title"
		}
		return "Heading" + strconv.Itoa(level)
	case docmodel.BulletItem:
		return "ListBullet"
	}
	return "BodyText"
}

func newParagraph(section string, b docmodel.Block) wParagraph {
	p := wParagraph{PPr: &wPPr{PStyle: &wVal{Val: styleFor(section, b)}}}
	if b.Kind == docmodel.BulletItem {
		p.PPr.NumPr = &wNumPr{Ilvl: wVal{Val: "0"}, NumID: wVal{Val: bulletNumID}}
	}

	p.Runs = make([]wRun, 0, len(b.Runs)*2)
	for i, r := range b.Runs {
		if i > 0 && b.Separator != "" {
			p.Runs = append(p.Runs, newRun(docmodel.Run{Text: b.Separator}))
		}
		p.Runs = append(p.Runs, newRun(r))
	}
	return p
}

func buildDocument(tree *docmodel.Tree, opts Options) wDocument {
	doc := wDocument{W: nsW, R: nsR}
	for _, sec := range tree.Sections {
		for _, b := range sec.Blocks {
			doc.Body.Paragraphs = append(doc.Body.Paragraphs, newParagraph(sec.Name, b))
		}
	}

	margin := int(opts.MarginInches * twipsPerInch)
	doc.Body.SectPr = wSectPr{
		PgSz: wPgSz{
			W: int(opts.Profile.PaperWidthInches() * twipsPerInch),
			H: int(opts.Profile.PaperHeightInches() * twipsPerInch),
		},
		PgMar: wPgMar{Top: margin, Right: margin, Bottom: margin, Left: margin, Header: 708, Footer: 708},
	}
	return doc
}
