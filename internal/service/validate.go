package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/model"
)

const (
	maxNameLen    = 20
	maxRemarkLen  = 100
	maxAllergyLen = 50
	maxMessageLen = 100
)

var (
	dateRe    = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
	phoneRe   = regexp.MustCompile(`^(09\d{8}|0\d{1,3}-?\d{6,8})$`)
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	accountRe = regexp.MustCompile(`^[a-zA-Z0-9_]{4,20}$`)
	letterRe  = regexp.MustCompile(`[A-Za-z]`)
)

// ValidDate reports whether s is a real calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func checkContact(name, phone, email string, emailRequired bool) error {
	switch {
	case name == "":
		return invalid("missing_info", "name is required")
	case utf8.RuneCountInString(name) > maxNameLen:
		return invalid("invalid_name", "name is too long")
	case !phoneRe.MatchString(phone):
		return invalid("invalid_phone", "phone number is malformed")
	case email == "" && emailRequired:
		return invalid("invalid_email", "email is required")
	case email != "" && !emailRe.MatchString(email):
		return invalid("invalid_email", "email is malformed")
	}
	return nil
}

func checkRemark(remark string) error {
	if utf8.RuneCountInString(remark) > maxRemarkLen {
		return invalid("invalid_remark", "remark is too long")
	}
	return nil
}

// ParseItemList decodes "code_qty,code_qty" against the venue catalog.
func ParseItemList(list string, v *config.Venue) ([]model.LineItem, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, invalid("missing_info", "item list is required")
	}
	var items []model.LineItem
	for _, part := range strings.Split(list, ",") {
		code, qty, ok := strings.Cut(strings.TrimSpace(part), "_")
		if !ok {
			return nil, invalid("invalid_list", "item "+strconv.Quote(part)+" is malformed")
		}
		n, err := strconv.Atoi(qty)
		if err != nil || n < 1 {
			return nil, invalid("invalid_list", "item "+strconv.Quote(part)+" has a bad quantity")
		}
		if _, known := v.Catalog[code]; !known {
			return nil, invalid("invalid_list", "unknown product "+strconv.Quote(code))
		}
		items = append(items, model.LineItem{Code: code, Quantity: n})
	}
	return items, nil
}

// ValidateAccount checks registration input for a member account.
func ValidateAccount(account, password, email, name string) error {
	if !accountRe.MatchString(account) {
		return invalid("invalid_account", "account must be 4-20 letters, digits or underscores")
	}
	if err := checkPassword(password); err != nil {
		return err
	}
	switch {
	case !emailRe.MatchString(email):
		return invalid("invalid_email", "email is malformed")
	case name == "" || utf8.RuneCountInString(name) > maxNameLen:
		return invalid("invalid_name", "name is required and at most 20 characters")
	}
	return nil
}

func checkPassword(password string) error {
	if len(password) < 8 || !letterRe.MatchString(password) {
		return invalid("invalid_password", "password must be at least 8 characters and contain a letter")
	}
	return nil
}
