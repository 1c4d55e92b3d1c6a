// Package templates holds the page and fragment components of the
// dashboard. Pages are full documents; fragments are patched into a page
// over SSE and carry the id of the element they replace.
package templates

import (
	"context"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"

	"sales-dashboard/internal/models"
)

const (
	DashboardContentID = "dashboard-content"
	OrdersContentID    = "orders-content"
	StatusID           = "refresh-status"
)

var pages = template.Must(template.New("pages").Funcs(funcs).Parse(layoutHTML + loginHTML + dashboardHTML + fragmentsHTML))

func component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, name, data)
	})
}

// Render renders c to a string, for SSE patches.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func Login(username, errMsg string) templ.Component {
	return component("login", map[string]string{
		"Title":    "Sign in",
		"Username": username,
		"Error":    errMsg,
	})
}

type navItem struct {
	Name   string
	Href   string
	Active bool
}

type dashboardPage struct {
	Title string
	User  string
	View  models.View
	Nav   []navItem
}

// Dashboard is the signed-in page. Only the Dashboard view has content; the
// other navigation entries render a placeholder.
func Dashboard(view models.View, user string) templ.Component {
	nav := make([]navItem, 0, len(models.Views))
	for _, v := range models.Views {
		nav = append(nav, navItem{
			Name:   string(v),
			Href:   "/?view=" + template.URLQueryEscaper(string(v)),
			Active: v == view,
		})
	}
	return component("dashboard", dashboardPage{
		Title: string(view),
		User:  user,
		View:  view,
		Nav:   nav,
	})
}

// DashboardContent is the KPI and top-N fragment for d.
func DashboardContent(d *models.Dashboard) templ.Component {
	return component("dashboard-content", d)
}

// OrdersTable is the data table fragment.
func OrdersTable(rows []models.OrderRow, total int) templ.Component {
	return component("orders-table", map[string]any{
		"Rows":  rows,
		"Total": total,
	})
}

// ErrorBanner replaces the dashboard content when the data cannot be loaded.
func ErrorBanner(message string) templ.Component {
	return component("error-banner", message)
}

// Status is the small "last updated" line under the header.
func Status(message string) templ.Component {
	return component("status", message)
}

const layoutHTML = `
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} · Sales Dashboard</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-RC.6/bundles/datastar.js"></script>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.4/dist/chart.umd.min.js"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6fa;color:#222}
.shell{display:flex;min-height:100vh}
nav{width:200px;background:#1f2937;color:#fff;padding:1rem}
nav a{display:block;color:#cbd5e1;text-decoration:none;padding:.4rem .6rem;border-radius:4px}
nav a.active{background:#374151;color:#fff}
main{flex:1;padding:1.5rem}
.kpis{display:grid;grid-template-columns:repeat(auto-fit,minmax(160px,1fr));gap:1rem}
.kpi{background:#fff;border-radius:6px;padding:1rem;box-shadow:0 1px 2px rgba(0,0,0,.08)}
.kpi .value{font-size:1.5rem;font-weight:600}
.charts{display:grid;grid-template-columns:repeat(auto-fit,minmax(320px,1fr));gap:1rem;margin-top:1rem}
.card{background:#fff;border-radius:6px;padding:1rem}
table{width:100%;border-collapse:collapse;font-size:.9rem}
th,td{text-align:left;padding:.35rem .5rem;border-bottom:1px solid #e5e7eb}
.error-banner{background:#fee2e2;color:#991b1b;border:1px solid #fca5a5;padding:1rem;border-radius:6px}
.muted{color:#6b7280;font-size:.85rem}
form.login{max-width:320px;margin:10vh auto;background:#fff;padding:2rem;border-radius:6px}
form.login input{display:block;width:100%;margin:.3rem 0 1rem;padding:.5rem}
</style>
</head>
{{end}}`

const loginHTML = `
{{define "login"}}{{template "head" .}}
<body>
<form class="login" method="post" action="/login">
<h1>Sales Dashboard</h1>
{{with .Error}}<div class="error-banner" role="alert">{{.}}</div>{{end}}
<label for="username">Username</label>
<input id="username" name="username" autocomplete="username" value="{{.Username}}" required>
<label for="password">Password</label>
<input id="password" name="password" type="password" autocomplete="current-password" required>
<button type="submit">Sign in</button>
</form>
</body>
</html>
{{end}}`

const dashboardHTML = `
{{define "dashboard"}}{{template "head" .}}
<body>
<div class="shell">
<nav>
<h2>Sales</h2>
{{range .Nav}}<a href="{{.Href}}"{{if .Active}} class="active"{{end}}>{{.Name}}</a>
{{end}}
<form method="post" action="/logout"><button type="submit">Sign out {{.User}}</button></form>
</nav>
<main>
<h1>{{.View}}</h1>
{{if eq (print .View) "Dashboard"}}
<div data-signals="{charts: {}}" data-effect="window.renderCharts && window.renderCharts($charts)">
<button data-on-click="@post('/sse/refresh')">Refresh data</button>
<p id="refresh-status" class="muted"></p>
<div id="dashboard-content" data-init="@get('/sse/dashboard')"><p class="muted">Loading…</p></div>
<div class="charts">
<div class="card"><h3>Orders by status</h3><canvas id="chart-status"></canvas></div>
<div class="card"><h3>Sales by month</h3><canvas id="chart-sales"></canvas></div>
<div class="card"><h3>Active clients by month</h3><canvas id="chart-clients"></canvas></div>
<div class="card"><h3>Top products</h3><canvas id="chart-products"></canvas></div>
</div>
<div id="orders-content" data-init="@get('/sse/orders')"></div>
</div>
<script>
window.renderCharts = (function () {
  const charts = {};
  function draw(id, type, labels, values, label) {
    const el = document.getElementById(id);
    if (!el || !labels) return;
    if (charts[id]) charts[id].destroy();
    charts[id] = new Chart(el, {type: type, data: {labels: labels, datasets: [{label: label, data: values}]}});
  }
  return function (c) {
    if (!c || !c.statusCounts) return;
    draw("chart-status", "pie", c.statusCounts.map(s => s.status), c.statusCounts.map(s => s.count), "Orders");
    draw("chart-sales", "line", c.salesByMonth.map(m => m.month), c.salesByMonth.map(m => Number(m.sales)), "Sales");
    draw("chart-clients", "bar", c.clientsByMonth.map(m => m.month), c.clientsByMonth.map(m => m.active_clients), "Clients");
    draw("chart-products", "bar", c.topProducts.map(p => p.name), c.topProducts.map(p => Number(p.sales)), "Sales");
  };
})();
</script>
{{else}}
<div class="card"><p class="muted">The {{.View}} view is not available yet.</p></div>
{{end}}
</main>
</div>
</body>
</html>
{{end}}`

const fragmentsHTML = `
{{define "dashboard-content"}}<div id="dashboard-content">
<div class="kpis">
<div class="kpi"><div class="muted">Total orders</div><div class="value">{{number .Summary.TotalOrders}}</div></div>
<div class="kpi"><div class="muted">Completed</div><div class="value">{{number .Summary.CompletedOrders}}</div></div>
<div class="kpi"><div class="muted">Pending</div><div class="value">{{number .Summary.PendingOrders}}</div></div>
<div class="kpi"><div class="muted">Revenue</div><div class="value">{{money .Summary.TotalRevenue}}</div></div>
<div class="kpi"><div class="muted">Average order</div><div class="value">{{optionalMoney .Summary.AverageOrderValue}}</div></div>
<div class="kpi"><div class="muted">Clients</div><div class="value">{{number .Summary.UniqueClients}}</div></div>
<div class="kpi"><div class="muted">Top deal size</div><div class="value">{{orNoData .Summary.TopDealSize}}</div></div>
</div>
{{if .Summary.RowsWithIssues}}<p class="muted">{{number .Summary.RowsWithIssues}} of {{number .Summary.RowCount}} rows had unreadable cells.</p>{{end}}
<div class="charts">
<div class="card"><h3>Top clients</h3>
{{if .TopClients}}<table><thead><tr><th>Client</th><th>Sales</th></tr></thead><tbody>
{{range .TopClients}}<tr><td>{{.Name}}</td><td>{{moneyCents .Sales}}</td></tr>
{{end}}</tbody></table>{{else}}<p class="muted">no data</p>{{end}}
</div>
<div class="card"><h3>Status share</h3>
{{if .StatusShares}}<table><thead><tr><th>Status</th><th>Share</th></tr></thead><tbody>
{{range .StatusShares}}<tr><td>{{.Status}}</td><td>{{percent .Share}}</td></tr>
{{end}}</tbody></table>{{else}}<p class="muted">no data</p>{{end}}
</div>
</div>
</div>{{end}}

{{define "orders-table"}}<div id="orders-content" class="card">
<h3>Orders <span class="muted">({{number .Total}} rows)</span></h3>
<table>
<thead><tr><th>Row</th><th>Order</th><th>Date</th><th>Month</th><th>Status</th><th>Sales</th><th>Customer</th><th>Product</th><th>Deal size</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Row}}</td><td>{{.OrderNumber}}</td><td>{{.OrderDate}}</td><td>{{.Month}}</td><td>{{.Status}}</td><td>{{.Sales}}</td><td>{{.CustomerName}}</td><td>{{.ProductCode}}</td><td>{{.DealSize}}</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "error-banner"}}<div id="dashboard-content"><div class="error-banner" role="alert"><strong>Data unavailable.</strong> {{.}}</div></div>{{end}}

{{define "status"}}<p id="refresh-status" class="muted">{{.}}</p>{{end}}
`
