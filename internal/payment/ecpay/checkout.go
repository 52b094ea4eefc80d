package ecpay

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	stageEndpoint      = "https://payment-stage.ecpay.com.tw/Cashier/AioCheckOut/V5"
	productionEndpoint = "https://payment.ecpay.com.tw/Cashier/AioCheckOut/V5"

	tradeDateLayout = "2006/01/02 15:04:05"
)

// Config holds merchant credentials and callback URLs.
type Config struct {
	MerchantID    string
	HashKey       string
	HashIV        string
	Mode          string // Test | Production
	ReturnURL     string
	ClientBackURL string
}

// Endpoint returns the cashier URL for the configured mode.
func (c Config) Endpoint() string {
	if strings.EqualFold(c.Mode, "Production") {
		return productionEndpoint
	}
	return stageEndpoint
}

// Order is what the cashier needs to know about a takeout order.
type Order struct {
	TradeNo     string
	TradeDate   time.Time // rendered in the location it carries
	TotalAmount int
	Description string
	ItemNames   []string
}

// Client builds signed checkout requests.
type Client struct {
	cfg Config
}

// NewClient returns a Client for cfg.
func NewClient(cfg Config) *Client { return &Client{cfg: cfg} }

// Params returns the signed AIO checkout fields for o.
func (c *Client) Params(o Order) (map[string]string, error) {
	if !validTradeNo(o.TradeNo) {
		return nil, fmt.Errorf("ecpay: trade number %q must be 1-20 letters or digits", o.TradeNo)
	}
	if o.TotalAmount <= 0 {
		return nil, fmt.Errorf("ecpay: total amount must be positive, got %d", o.TotalAmount)
	}
	p := map[string]string{
		"MerchantID":        c.cfg.MerchantID,
		"MerchantTradeNo":   o.TradeNo,
		"MerchantTradeDate": o.TradeDate.Format(tradeDateLayout),
		"PaymentType":       "aio",
		"TotalAmount":       strconv.Itoa(o.TotalAmount),
		"TradeDesc":         o.Description,
		"ItemName":          strings.Join(o.ItemNames, "#"),
		"ReturnURL":         c.cfg.ReturnURL,
		"ChoosePayment":     "ALL",
		"EncryptType":       "1",
	}
	if c.cfg.ClientBackURL != "" {
		p["ClientBackURL"] = c.cfg.ClientBackURL
	}
	p[FieldCheckMac] = CheckMacValue(p, c.cfg.HashKey, c.cfg.HashIV)
	return p, nil
}

var formTmpl = template.Must(template.New("aio").Parse(
	`<form id="_form_aiochk" action="{{.Action}}" method="post">` +
		`{{range .Fields}}<input type="hidden" name="{{.Name}}" value="{{.Value}}" />{{end}}` +
		`</form>`))

type formField struct{ Name, Value string }

// Form renders the signed checkout fields as an HTML form that the browser
// submits to the cashier.  The markup carries no script; the caller submits it.
func (c *Client) Form(o Order) (string, error) {
	p, err := c.Params(o)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	fields := make([]formField, 0, len(names))
	for _, n := range names {
		fields = append(fields, formField{Name: n, Value: p[n]})
	}
	var buf bytes.Buffer
	if err := formTmpl.Execute(&buf, struct {
		Action string
		Fields []formField
	}{c.cfg.Endpoint(), fields}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func validTradeNo(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}

// Callback is the subset of the payment result ECPay posts to ReturnURL.
type Callback struct {
	MerchantTradeNo string
	RtnCode         string
	RtnMsg          string
	TradeNo         string
	TradeAmt        int
}

// Paid reports whether the gateway settled the payment.
func (cb Callback) Paid() bool { return cb.RtnCode == "1" }

// ParseCallback verifies fields and extracts the payment result.  ok is
// false when the signature does not match; the fields must then be ignored.
func (c *Client) ParseCallback(fields map[string]string) (cb Callback, ok bool) {
	if !Verify(fields, c.cfg.HashKey, c.cfg.HashIV) {
		return Callback{}, false
	}
	amt, _ := strconv.Atoi(fields["TradeAmt"])
	return Callback{
		MerchantTradeNo: fields["MerchantTradeNo"],
		RtnCode:         fields["RtnCode"],
		RtnMsg:          fields["RtnMsg"],
		TradeNo:         fields["TradeNo"],
		TradeAmt:        amt,
	}, true
}

// Sign adds a CheckMacValue to fields.  Used to build callbacks in tests
// and local simulations.
func (c *Client) Sign(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[FieldCheckMac] = CheckMacValue(out, c.cfg.HashKey, c.cfg.HashIV)
	return out
}
