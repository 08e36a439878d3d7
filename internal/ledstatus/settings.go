package ledstatus

import (
	"context"
	"fmt"
	"sync"

	"github.com/muurk/ledstatus/internal/hostapi"
)

// PowerEstimate is the supply requirement of a strip
type PowerEstimate struct {
	// Current is the strip's draw in amps
	Current float64

	// Power5V is the supply wattage needed at 5V
	Power5V float64

	// Power12V is the supply wattage needed at 12V
	Power12V float64
}

// Power estimates the supply needed for pixelCount LEDs drawing
// currentMA milliamps each.
func Power(currentMA float64, pixelCount int) PowerEstimate {
	current := float64(pixelCount) * currentMA / 1000
	return PowerEstimate{
		Current:  current,
		Power5V:  current * 5,
		Power12V: current * 12,
	}
}

// DefaultRule returns the template for a new rule in category
func DefaultRule(category Category) TriggerRule {
	rule := TriggerRule{
		Match:  "",
		Effect: "Solid Color",
		Color:  "#00ff00",
		Delay:  10,
	}
	if category == CategoryGcode {
		rule.MatchType = MatchGcode
	}
	return rule
}

// draft is a rule opened for editing. index is -1 for a new rule.
type draft struct {
	category Category
	index    int
	rule     TriggerRule
}

// SettingsPanel holds the custom trigger lists being edited and sends
// the panel's one-shot test commands.
type SettingsPanel struct {
	notifier

	cmd   Commander
	store SettingsStore

	mu       sync.Mutex
	settings PluginSettings
	rules    map[Category][]TriggerRule
	draft    *draft
}

// NewSettingsPanel creates a panel that reads and writes through store
func NewSettingsPanel(cmd Commander, store SettingsStore) *SettingsPanel {
	return &SettingsPanel{
		cmd:   cmd,
		store: store,
		rules: make(map[Category][]TriggerRule),
	}
}

// TestLED runs effect on the strip once
func (p *SettingsPanel) TestLED(ctx context.Context, effect, color string, delay int) error {
	_, err := p.cmd.Command(ctx, hostapi.CmdTestLED, map[string]any{
		"effect": effect,
		"color":  color,
		"delay":  delay,
	})
	return err
}

// TestColor shows a solid colour on the strip
func (p *SettingsPanel) TestColor(ctx context.Context, color string) error {
	_, err := p.cmd.Command(ctx, hostapi.CmdTestLED, map[string]any{"color": color})
	return err
}

// TestRGB shows a colour given as channel values, the form older hosts accept.
// Each channel must be within 0-255.
func (p *SettingsPanel) TestRGB(ctx context.Context, red, green, blue int) error {
	for _, v := range []int{red, green, blue} {
		if v < 0 || v > 255 {
			return fmt.Errorf("colour channel %d out of range 0-255", v)
		}
	}
	_, err := p.cmd.Command(ctx, hostapi.CmdTestLED, map[string]any{
		"red":   red,
		"green": green,
		"blue":  blue,
	})
	return err
}

// Load reads the plugin settings and replaces the trigger lists.
// Any open draft is discarded.
func (p *SettingsPanel) Load(ctx context.Context) error {
	var settings PluginSettings
	if err := p.store.PluginSettings(ctx, &settings); err != nil {
		return fmt.Errorf("load plugin settings: %w", err)
	}
	p.LoadFrom(settings)
	return nil
}

// LoadFrom replaces the trigger lists with the ones in settings
func (p *SettingsPanel) LoadFrom(settings PluginSettings) {
	p.mu.Lock()
	p.settings = settings
	p.rules = map[Category][]TriggerRule{
		CategoryAtCommand: cloneRules(settings.Custom.AtCommand),
		CategoryEvent:     cloneRules(settings.Custom.Event),
		CategoryGcode:     cloneRules(settings.Custom.Gcode),
	}
	p.draft = nil
	p.mu.Unlock()

	p.notify()
}

// Settings returns the settings read by the last Load
func (p *SettingsPanel) Settings() PluginSettings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// Save writes the three trigger lists back to the host as they are
func (p *SettingsPanel) Save(ctx context.Context) error {
	p.mu.Lock()
	custom := CustomTriggers{
		AtCommand: nonNil(cloneRules(p.rules[CategoryAtCommand])),
		Event:     nonNil(cloneRules(p.rules[CategoryEvent])),
		Gcode:     withMatchType(nonNil(cloneRules(p.rules[CategoryGcode]))),
	}
	p.mu.Unlock()

	if err := p.store.SavePluginSettings(ctx, map[string]any{"custom": custom}); err != nil {
		return fmt.Errorf("save trigger rules: %w", err)
	}

	p.mu.Lock()
	p.settings.Custom = custom
	p.mu.Unlock()
	return nil
}

// Rules returns a copy of the rules in category
func (p *SettingsPanel) Rules(category Category) []TriggerRule {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneRules(p.rules[category])
}

// Open starts editing a copy of the rule at index. The list is not
// changed until Commit.
func (p *SettingsPanel) Open(category Category, index int) (TriggerRule, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rules := p.rules[category]
	if index < 0 || index >= len(rules) {
		return TriggerRule{}, fmt.Errorf("%w: %s rule %d", ErrIndexOutOfRange, category, index)
	}
	p.draft = &draft{category: category, index: index, rule: rules[index]}
	return p.draft.rule, nil
}

// New starts editing a new rule from the category's template
func (p *SettingsPanel) New(category Category) (TriggerRule, error) {
	if _, err := ParseCategory(string(category)); err != nil {
		return TriggerRule{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.draft = &draft{category: category, index: -1, rule: DefaultRule(category)}
	return p.draft.rule, nil
}

// Draft returns the rule being edited
func (p *SettingsPanel) Draft() (TriggerRule, Category, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.draft == nil {
		return TriggerRule{}, "", false
	}
	return p.draft.rule, p.draft.category, true
}

// Edit applies fn to the draft
func (p *SettingsPanel) Edit(fn func(*TriggerRule)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.draft == nil {
		return ErrNoSelection
	}
	fn(&p.draft.rule)
	return nil
}

// Commit writes the draft into its list: a new rule is appended, an
// opened rule replaces the original.
func (p *SettingsPanel) Commit() error {
	p.mu.Lock()
	d := p.draft
	if d == nil {
		p.mu.Unlock()
		return ErrNoSelection
	}

	rules := p.rules[d.category]
	switch {
	case d.index < 0:
		p.rules[d.category] = append(rules, d.rule)
	case d.index < len(rules):
		rules[d.index] = d.rule
	default:
		p.mu.Unlock()
		return fmt.Errorf("%w: %s rule %d", ErrIndexOutOfRange, d.category, d.index)
	}
	p.draft = nil
	p.mu.Unlock()

	p.notify()
	return nil
}

// Cancel discards the draft
func (p *SettingsPanel) Cancel() {
	p.mu.Lock()
	p.draft = nil
	p.mu.Unlock()
}

// Delete removes the rule at index from category
func (p *SettingsPanel) Delete(category Category, index int) error {
	p.mu.Lock()
	rules := p.rules[category]
	if index < 0 || index >= len(rules) {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s rule %d", ErrIndexOutOfRange, category, index)
	}

	updated := make([]TriggerRule, 0, len(rules)-1)
	updated = append(updated, rules[:index]...)
	updated = append(updated, rules[index+1:]...)
	p.rules[category] = updated

	// An opened rule follows its position; new drafts are unaffected
	if d := p.draft; d != nil && d.category == category && d.index >= 0 {
		switch {
		case d.index == index:
			p.draft = nil
		case d.index > index:
			d.index--
		}
	}
	p.mu.Unlock()

	p.notify()
	return nil
}

func cloneRules(rules []TriggerRule) []TriggerRule {
	if rules == nil {
		return nil
	}
	return append([]TriggerRule(nil), rules...)
}

// withMatchType fills in the match type the host requires on every G-code rule
func withMatchType(rules []TriggerRule) []TriggerRule {
	for i := range rules {
		if rules[i].MatchType == "" {
			rules[i].MatchType = MatchGcode
		}
	}
	return rules
}

func nonNil(rules []TriggerRule) []TriggerRule {
	if rules == nil {
		return []TriggerRule{}
	}
	return rules
}
