package http

import (
	"embed"
	"html/template"
	"net/url"

	"github.com/vinodismyname/salesdash/internal/dashboard"
	"github.com/vinodismyname/salesdash/internal/presenter"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTemplate = template.Must(
	template.New("dashboard.html").
		Funcs(template.FuncMap{"pickerData": pickerData, "chartURL": chartURL}).
		ParseFS(templateFS, "templates/dashboard.html"),
)

// page is the template data for GET /.
type page struct {
	Title         string
	Subtitle      string
	Error         string
	View          *dashboard.View
	PreviewHeader []string
	PreviewRows   [][]string
	query         url.Values
}

func newPage(title, subtitle string, sel presenter.Selection) *page {
	return &page{Title: title, Subtitle: subtitle, query: selectionQuery(sel)}
}

func (p *page) withView(v *dashboard.View) *page {
	p.View = v
	p.PreviewHeader = v.Preview.Names()
	p.PreviewRows = v.Preview.Cells()
	return p
}

type hiddenField struct{ Name, Value string }

// pickerView feeds the "picker" template.
type pickerView struct {
	Picker *presenter.Picker
	XParam string
	YParam string
	Keep   []hiddenField
}

var pickerParams = map[presenter.PanelID][2]string{
	presenter.PanelScatter:  {"scatter_x", "scatter_y"},
	presenter.PanelExplorer: {"explore_x", "explore_y"},
}

// pickerData pairs a panel's picker with its query parameters, carrying the
// other panels' selections along as hidden fields.
func pickerData(p *page, panel presenter.Panel) pickerView {
	params := pickerParams[panel.ID]
	pv := pickerView{Picker: panel.Picker, XParam: params[0], YParam: params[1]}
	for _, name := range []string{"scatter_x", "scatter_y", "explore_x", "explore_y"} {
		if name == params[0] || name == params[1] {
			continue
		}
		if v := p.query.Get(name); v != "" {
			pv.Keep = append(pv.Keep, hiddenField{Name: name, Value: v})
		}
	}
	return pv
}

// chartURL links a panel image with the current selection.
func chartURL(p *page, id presenter.PanelID) string {
	u := url.URL{Path: "/charts/" + string(id) + "." + string(presenter.FormatSVG), RawQuery: p.query.Encode()}
	return u.String()
}

func selectionQuery(sel presenter.Selection) url.Values {
	q := url.Values{}
	for name, v := range map[string]string{
		"scatter_x": sel.ScatterX,
		"scatter_y": sel.ScatterY,
		"explore_x": sel.ExploreX,
		"explore_y": sel.ExploreY,
	} {
		if v != "" {
			q.Set(name, v)
		}
	}
	return q
}

func selectionFrom(q url.Values) presenter.Selection {
	return presenter.Selection{
		ScatterX: q.Get("scatter_x"),
		ScatterY: q.Get("scatter_y"),
		ExploreX: q.Get("explore_x"),
		ExploreY: q.Get("explore_y"),
	}
}
