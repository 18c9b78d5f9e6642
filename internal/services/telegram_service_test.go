package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "0", FormatPrice(0))
	assert.Equal(t, "950", FormatPrice(950))
	assert.Equal(t, "1,500", FormatPrice(1500))
	assert.Equal(t, "2,500,000", FormatPrice(2500000.75))
}

func TestSendMessage_NotConfigured(t *testing.T) {
	s := NewTelegramService("", "")
	assert.NoError(t, s.SendMessage("123", "hello"))
	assert.NoError(t, s.SendToAdmin("hello"))
}

func TestMailSend_NotConfigured(t *testing.T) {
	s := NewMailService("", 587, "", "", "from@example.com")
	assert.NoError(t, s.Send("to@example.com", "subject", "body"))
}
