// Package notify turns order events into customer emails.
package notify

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/queue"
)

// ErrNoRecipient is returned for events without an email address.
var ErrNoRecipient = errors.New("event has no recipient")

// Message is a rendered plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

const timeLayout = "2006-01-02 15:04"

var templates = template.Must(template.New("notify").Parse(`
{{- define "reservation.confirmed" -}}
{{.Name}} 您好：

感謝您預約 {{.Venue}}，以下是您的預約資訊。

訂單編號：{{.OrderNumber}}
下單時間：{{.OrderTime}}
姓名：{{.Name}}
預約日期：{{.Date}}
預約時間：{{.Time}}
預約人數：{{.People}} 位
{{- if .Theme}}
主題：{{.Theme}}
{{- end}}
{{- if .Remark}}
備註：{{.Remark}}
{{- end}}
{{- if .FoodAllergy}}
過敏食物：{{.FoodAllergy}}
{{- end}}

取消預約：{{.CancelURL}}
預約時間前 {{.CancelLead}} 分鐘起不可取消。

感謝您選擇 {{.Venue}}
{{end}}

{{- define "reservation.cancelled" -}}
{{.Name}} 您好：

您的預約已取消。

訂單編號：{{.OrderNumber}}
預約日期：{{.Date}}
預約時間：{{.Time}}
預約人數：{{.People}} 位
取消時間：{{.CancelTime}}

期待您再次光臨 {{.Venue}}
{{end}}

{{- define "takeout.confirmed" -}}
{{.Name}} 您好：

感謝您在 {{.Venue}} 訂購外帶，以下是您的訂單資訊。

訂單編號：{{.OrderNumber}}
下單時間：{{.OrderTime}}
姓名：{{.Name}}
取餐日期：{{.Date}}
取餐時間：{{.Time}} - {{.EndTime}}
餐點：
{{- range .Items}}
  {{.}}
{{- end}}
小計：{{.Price}}
{{- if .Discount}}
點數折抵：{{.Discount}}
{{- end}}
應付金額：{{.Total}}
付款狀態：{{if .Paid}}已付款{{else}}取餐時付款{{end}}
{{- if .PointsEarned}}
本次獲得點數：{{.PointsEarned}}
{{- end}}
{{- if .Remark}}
備註：{{.Remark}}
{{- end}}

取消訂單：{{.CancelURL}}
取餐時段結束前 {{.CancelLead}} 分鐘起不可取消。

感謝您選擇 {{.Venue}}
{{end}}

{{- define "takeout.cancelled" -}}
{{.Name}} 您好：

您的外帶訂單已取消。

訂單編號：{{.OrderNumber}}
取餐日期：{{.Date}}
取餐時間：{{.Time}} - {{.EndTime}}
{{- if .PointsEarned}}
已收回點數：{{.PointsEarned}}
{{- end}}
取消時間：{{.CancelTime}}

期待您再次光臨 {{.Venue}}
{{end}}

{{- define "email_change" -}}
{{.Name}} 您好：

您正在變更 {{.Venue}} 會員的 Email，驗證碼是：{{.Code}}
請於 {{.CodeExpiresAt}} 前使用驗證碼完成驗證。

若您未發起此操作，請忽略此信件。

{{.Venue}} 團隊 敬上
{{end}}

{{- define "password_reset" -}}
{{.Name}} 您好：

您正在重設 {{.Venue}} 會員密碼，驗證碼是：{{.Code}}
請於 {{.CodeExpiresAt}} 前使用驗證碼完成驗證。

若您未發起此操作，請忽略此信件，您的密碼不會變更。

{{.Venue}} 團隊 敬上
{{end}}
`))

var subjects = map[string]string{
	"reservation.confirmed": "預約成功",
	"reservation.cancelled": "預約已取消",
	"takeout.confirmed":     "外帶訂單成立",
	"takeout.cancelled":     "外帶訂單已取消",
	"email_change":          "變更Email驗證",
	"password_reset":        "忘記密碼驗證",
}

// Renderer formats events with the venue's catalog, theme names and time
// zone.
type Renderer struct {
	venue   *config.Venue
	siteURL string
	printer *message.Printer
}

// NewRenderer returns a Renderer.  siteURL is the customer-facing site that
// hosts the cancel page.
func NewRenderer(v *config.Venue, siteURL string) *Renderer {
	return &Renderer{
		venue:   v,
		siteURL: strings.TrimRight(siteURL, "/"),
		printer: message.NewPrinter(language.English),
	}
}

type view struct {
	Venue         string
	Name          string
	OrderNumber   string
	OrderTime     string
	Date          string
	Time          string
	EndTime       string
	People        int
	Theme         string
	Remark        string
	FoodAllergy   string
	Items         []string
	Price         string
	Discount      string
	Total         string
	Paid          bool
	PointsEarned  int
	CancelURL     string
	CancelLead    int
	CancelTime    string
	Code          string
	CodeExpiresAt string
}

// Render builds the email for ev.
func (r *Renderer) Render(ev queue.OrderEvent) (Message, error) {
	if ev.Email == "" {
		return Message{}, ErrNoRecipient
	}
	name := templateName(ev)
	subject, ok := subjects[name]
	if !ok {
		return Message{}, fmt.Errorf("no template for %s %s", ev.Kind, ev.Type)
	}
	v := view{
		Venue:        r.venue.Name,
		Name:         ev.Name,
		OrderNumber:  ev.OrderNumber,
		OrderTime:    r.localTime(ev.OrderTime),
		Date:         ev.Date,
		Time:         ev.Time,
		EndTime:      ev.EndTime,
		People:       ev.People,
		Remark:       ev.Remark,
		FoodAllergy:  ev.FoodAllergy,
		Paid:         ev.Paid,
		PointsEarned: ev.PointsEarned,
		Code:         ev.Code,
	}
	if ev.CancelTime != nil {
		v.CancelTime = r.localTime(*ev.CancelTime)
	}
	if ev.CodeExpiresAt != nil {
		v.CodeExpiresAt = r.localTime(*ev.CodeExpiresAt)
	}
	switch ev.Kind {
	case queue.KindReservation:
		if ev.Theme != "" {
			v.Theme = r.venue.ThemeName(ev.Theme)
		}
		v.CancelLead = r.venue.Reservation.CancelLeadMinutes
		v.CancelURL = r.cancelURL("ORDToken", ev.CancelToken)
	case queue.KindTakeout:
		v.Items = r.items(ev.Items)
		v.Price = r.amount(ev.Price)
		if ev.Discount > 0 {
			v.Discount = r.amount(ev.Discount)
		}
		v.Total = r.amount(ev.Price - ev.Discount)
		v.CancelLead = r.venue.Takeout.CancelLeadMinutes
		v.CancelURL = r.cancelURL("TKOToken", ev.CancelToken)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, v); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{To: ev.Email, Subject: r.venue.Name + " " + subject, Body: buf.String()}, nil
}

// templateName picks the template for ev: kind plus status for order
// events, the verification purpose for account events.
func templateName(ev queue.OrderEvent) string {
	if ev.Type == queue.EventAccountVerification {
		return ev.Kind
	}
	return ev.Kind + strings.TrimPrefix(ev.Type, "order")
}

func (r *Renderer) localTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(r.venue.Location()).Format(timeLayout)
}

func (r *Renderer) amount(n int) string { return r.printer.Sprintf("NT$%d", n) }

func (r *Renderer) cancelURL(param, token string) string {
	if token == "" {
		return ""
	}
	return r.siteURL + "/cancel-order?" + param + "=" + token
}

// items expands "code_qty,code_qty" into display lines.  Unknown codes are
// shown as is.
func (r *Renderer) items(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, qty, ok := strings.Cut(part, "_")
		if _, err := strconv.Atoi(qty); !ok || err != nil {
			out = append(out, part)
			continue
		}
		out = append(out, r.venue.ProductName(code)+" x "+qty)
	}
	return out
}
