package templates

import (
	_ "embed"
	"fmt"
	"slotbook/pkg/config"
	"slotbook/pkg/model"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type channelSet map[config.Channel]model.ChannelTemplate

type localeSet map[config.ReminderSlot]channelSet

// Catalog holds the built-in templates per locale.
type Catalog struct {
	locales  map[string]localeSet
	fallback string
}

// Load parses the embedded defaults. fallback is used for locales without
// their own templates.
func Load(fallback string) (*Catalog, error) {
	var locales map[string]localeSet
	if err := yaml.Unmarshal(defaultsYAML, &locales); err != nil {
		return nil, fmt.Errorf("parse default templates: %w", err)
	}
	if _, ok := locales[fallback]; !ok {
		return nil, fmt.Errorf("no default templates for fallback locale %q", fallback)
	}
	return &Catalog{locales: locales, fallback: fallback}, nil
}

func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.locales))
	for l := range c.locales {
		out = append(out, l)
	}
	return out
}

// Template returns the built-in template for locale, slot and channel.
func (c *Catalog) Template(locale string, slot config.ReminderSlot, channel config.Channel) model.ChannelTemplate {
	set, ok := c.locales[strings.ToLower(locale)]
	if !ok {
		set = c.locales[c.fallback]
	}
	return set[slot][channel]
}

// Fill returns a copy of templates where every enabled channel without a body
// gets the built-in text.
func (c *Catalog) Fill(locale string, slot config.ReminderSlot, templates model.ChannelTemplates) model.ChannelTemplates {
	fill := func(channel config.Channel, t *model.ChannelTemplate) *model.ChannelTemplate {
		if t == nil {
			return nil
		}
		filled := *t
		if filled.Enabled && strings.TrimSpace(filled.Body) == "" {
			def := c.Template(locale, slot, channel)
			filled.Body = def.Body
			if filled.Subject == "" {
				filled.Subject = def.Subject
			}
		}
		return &filled
	}
	return model.ChannelTemplates{
		SMS:      fill(config.SMS, templates.SMS),
		WhatsApp: fill(config.WhatsApp, templates.WhatsApp),
		Email:    fill(config.Email, templates.Email),
	}
}

// Vars are the values substituted into a template.
type Vars struct {
	Customer string
	Date     string // YYYY-MM-DD
	Time     string // HH:MM
	Tenant   string
}

// Render substitutes the placeholders of t. Dates are shown as DD/MM/YYYY.
func Render(t model.ChannelTemplate, vars Vars) (subject, body string) {
	date := vars.Date
	if d, err := time.Parse(time.DateOnly, vars.Date); err == nil {
		date = d.Format("02/01/2006")
	}
	r := strings.NewReplacer(
		"{customer}", vars.Customer,
		"{date}", date,
		"{time}", vars.Time,
		"{tenant}", vars.Tenant,
	)
	return r.Replace(t.Subject), r.Replace(t.Body)
}
