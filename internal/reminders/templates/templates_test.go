package templates

import (
	"slotbook/pkg/config"
	"slotbook/pkg/model"
	"strings"
	"testing"
)

func TestLoad_EveryLocaleCoversEverySlotAndChannel(t *testing.T) {
	c, err := Load("nl")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, locale := range c.Locales() {
		for _, slot := range []config.ReminderSlot{config.DayBefore, config.SameDay} {
			for _, channel := range config.Channels {
				tmpl := c.Template(locale, slot, channel)
				if tmpl.Body == "" {
					t.Errorf("%s/%s/%s has no body", locale, slot, channel)
				}
				if channel == config.Email && tmpl.Subject == "" {
					t.Errorf("%s/%s email has no subject", locale, slot)
				}
			}
		}
	}
}

func TestLoad_UnknownFallback(t *testing.T) {
	if _, err := Load("xx"); err == nil {
		t.Error("Load(xx) succeeded, want error")
	}
}

func TestTemplate_FallsBackForUnknownLocale(t *testing.T) {
	c, _ := Load("en")
	got := c.Template("de", config.DayBefore, config.SMS)
	want := c.Template("en", config.DayBefore, config.SMS)
	if got.Body != want.Body {
		t.Errorf("body = %q, want english fallback", got.Body)
	}
}

func TestRender(t *testing.T) {
	tmpl := model.ChannelTemplate{
		Subject: "Reminder {tenant}",
		Body:    "Hi {customer}, {date} at {time} ({tenant})",
	}
	subject, body := Render(tmpl, Vars{Customer: "Jan", Date: "2024-06-10", Time: "10:00", Tenant: "Salon Dor"})

	if subject != "Reminder Salon Dor" {
		t.Errorf("subject = %q", subject)
	}
	if body != "Hi Jan, 10/06/2024 at 10:00 (Salon Dor)" {
		t.Errorf("body = %q", body)
	}
}

func TestFill(t *testing.T) {
	c, _ := Load("nl")
	filled := c.Fill("nl", config.DayBefore, model.ChannelTemplates{
		SMS:   &model.ChannelTemplate{Enabled: true},
		Email: &model.ChannelTemplate{Enabled: true, Body: "eigen tekst"},
	})

	if !strings.Contains(filled.SMS.Body, "{customer}") {
		t.Errorf("sms body not filled: %q", filled.SMS.Body)
	}
	if filled.Email.Body != "eigen tekst" {
		t.Errorf("custom email body overwritten: %q", filled.Email.Body)
	}
	if filled.Email.Subject == "" {
		t.Error("email subject not filled")
	}
	if filled.WhatsApp != nil {
		t.Error("whatsapp should stay off")
	}
}
