package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/model"
)

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate("2025-06-01"))
	assert.True(t, ValidDate("2024-02-29"))
	assert.False(t, ValidDate("2025-02-29"))
	assert.False(t, ValidDate("2025-6-1"))
	assert.False(t, ValidDate("2025/06/01"))
	assert.False(t, ValidDate(""))
}

func TestCheckContact(t *testing.T) {
	assert.NoError(t, checkContact("小明", "0912345678", "", false))
	assert.NoError(t, checkContact("小明", "02-23456789", "a@b.tw", true))
	assert.ErrorIs(t, checkContact("", "0912345678", "", false), ErrValidation)
	assert.ErrorIs(t, checkContact("一二三四五六七八九十一二三四五六七八九十一", "0912345678", "", false), ErrValidation)
	assert.NoError(t, checkContact("小明", "091234567", "", false), "0 + area code 9 + seven digits is a landline")
	assert.ErrorIs(t, checkContact("小明", "12345678", "", false), ErrValidation)
	assert.ErrorIs(t, checkContact("小明", "0912", "", false), ErrValidation)
	assert.ErrorIs(t, checkContact("小明", "0912345678", "not-an-email", false), ErrValidation)
}

func TestParseItemList(t *testing.T) {
	v := config.DefaultVenue()
	items, err := ParseItemList("pastaA_2, drinkE_1", v)
	require.NoError(t, err)
	assert.Equal(t, []model.LineItem{{Code: "pastaA", Quantity: 2}, {Code: "drinkE", Quantity: 1}}, items)

	for _, bad := range []string{"", "pastaA", "pastaA_x", "pastaA_-1", "burger_1", "pastaA_1,"} {
		_, err := ParseItemList(bad, v)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestValidateAccount(t *testing.T) {
	assert.NoError(t, ValidateAccount("wolf_01", "pasta1234", "wolf@example.com", "狼"))
	assert.ErrorIs(t, ValidateAccount("ab", "pasta1234", "wolf@example.com", "狼"), ErrValidation)
	assert.ErrorIs(t, ValidateAccount("wolf_01", "12345678", "wolf@example.com", "狼"), ErrValidation)
	assert.ErrorIs(t, ValidateAccount("wolf_01", "pasta", "wolf@example.com", "狼"), ErrValidation)
	assert.ErrorIs(t, ValidateAccount("wolf_01", "pasta1234", "wolf", "狼"), ErrValidation)
	assert.ErrorIs(t, ValidateAccount("wolf_01", "pasta1234", "wolf@example.com", ""), ErrValidation)
}
