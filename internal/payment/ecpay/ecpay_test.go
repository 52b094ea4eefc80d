package ecpay

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testHashKey = "pwFHCqoQZGmho4w6"
	testHashIV  = "EkRm7iFT261dpevs"
)

func testClient() *Client {
	return NewClient(Config{
		MerchantID: "3002607",
		HashKey:    testHashKey,
		HashIV:     testHashIV,
		Mode:       "Test",
		ReturnURL:  "https://api.example.test/v1/takeout/ecpay/return",
	})
}

func TestCheckMacValueMatchesPublishedExample(t *testing.T) {
	fields := map[string]string{
		"TradeDesc":         "促銷方案",
		"PaymentType":       "aio",
		"MerchantTradeDate": "2023/03/12 15:30:23",
		"MerchantTradeNo":   "ecpay20230312153023",
		"MerchantID":        "3002607",
		"ReturnURL":         "https://www.ecpay.com.tw/receive.php",
		"ItemName":          "Apple iphone 15",
		"TotalAmount":       "30000",
		"ChoosePayment":     "ALL",
		"EncryptType":       "1",
	}
	assert.Equal(t, "6C51C9E6888DE861FD62FB1DD17029FC742634498FD813DC43D4243B5685B840",
		CheckMacValue(fields, testHashKey, testHashIV))
}

func TestCheckMacValueIgnoresExistingSignature(t *testing.T) {
	fields := map[string]string{
		"MerchantID":      "3002607",
		"MerchantTradeNo": "TKO20250601-A1B2C",
		"PaymentDate":     "2025/06/01 12:00:00",
		"PaymentType":     "Credit_CreditCard",
		"RtnCode":         "1",
		"RtnMsg":          "交易成功",
		"TradeAmt":        "360",
		"TradeDate":       "2025/06/01 11:58:00",
		"TradeNo":         "2506011158001234",
		"SimulatePaid":    "0",
	}
	want := "BB70B60C4BDDC4BEBA38832D3FA0C1BEB3AE1E6BF4CF2C66B68537FC4E0E94BC"
	assert.Equal(t, want, CheckMacValue(fields, testHashKey, testHashIV))

	fields[FieldCheckMac] = "whatever"
	assert.Equal(t, want, CheckMacValue(fields, testHashKey, testHashIV))
}

func TestParseCallbackRejectsTamperedFields(t *testing.T) {
	c := testClient()
	signed := c.Sign(map[string]string{
		"MerchantTradeNo": "TKO20250601-A1B2C",
		"RtnCode":         "1",
		"RtnMsg":          "Succeeded",
		"TradeNo":         "2506011158001234",
		"TradeAmt":        "360",
	})

	cb, ok := c.ParseCallback(signed)
	require.True(t, ok)
	assert.True(t, cb.Paid())
	assert.Equal(t, 360, cb.TradeAmt)

	signed["TradeAmt"] = "1"
	_, ok = c.ParseCallback(signed)
	assert.False(t, ok)

	delete(signed, FieldCheckMac)
	_, ok = c.ParseCallback(signed)
	assert.False(t, ok)
}

func TestFormIsSignedAndScriptFree(t *testing.T) {
	c := testClient()
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	html, err := c.Form(Order{
		TradeNo:     "TKO20250601A1B2C",
		TradeDate:   time.Date(2025, 6, 1, 11, 0, 0, 0, loc),
		TotalAmount: 360,
		Description: "Wild Pasta takeout",
		ItemNames:   []string{"狼嚎辣肉醬麵 x 2", "森林野莓奶酪 x 1"},
	})
	require.NoError(t, err)
	assert.Contains(t, html, stageEndpoint)
	assert.Contains(t, html, `name="MerchantTradeDate" value="2025/06/01 11:00:00"`)
	assert.Contains(t, html, `name="CheckMacValue"`)
	assert.NotContains(t, strings.ToLower(html), "<script")

	p, err := c.Params(Order{TradeNo: "TKO20250601A1B2C", TradeDate: time.Now(), TotalAmount: 360})
	require.NoError(t, err)
	assert.True(t, Verify(p, testHashKey, testHashIV))
}

func TestParamsValidation(t *testing.T) {
	c := testClient()
	_, err := c.Params(Order{TradeNo: "", TotalAmount: 10})
	assert.Error(t, err)
	_, err = c.Params(Order{TradeNo: "TKO20250601-A1B2C", TotalAmount: 10})
	assert.Error(t, err)
	_, err = c.Params(Order{TradeNo: "TKO20250601A1B2C", TotalAmount: 0})
	assert.Error(t, err)
}

func TestEndpointByMode(t *testing.T) {
	assert.Equal(t, productionEndpoint, Config{Mode: "production"}.Endpoint())
	assert.Equal(t, stageEndpoint, Config{Mode: "Test"}.Endpoint())
}
