package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ledstatus/internal/ledstatus"
)

// ruleField is a field of the inline trigger editor
type ruleField int

const (
	fieldMatch ruleField = iota
	fieldMatchType
	fieldEffect
	fieldColor
	fieldDelay
	fieldCount
)

var ruleFieldLabels = [fieldCount]string{"Match", "Match type", "Effect", "Color", "Delay (ms)"}

var matchTypes = []ledstatus.MatchType{ledstatus.MatchGcode, ledstatus.MatchExact, ledstatus.MatchRegex}

// ruleEditor holds the inputs of the rule being edited. The rule itself
// lives in the settings panel's draft until it is committed.
type ruleEditor struct {
	category  ledstatus.Category
	isNew     bool
	field     ruleField
	inputs    [fieldCount]textinput.Model
	matchType ledstatus.MatchType
	err       string
}

func newRuleEditor(category ledstatus.Category, rule ledstatus.TriggerRule, isNew bool) *ruleEditor {
	e := &ruleEditor{
		category:  category,
		isNew:     isNew,
		matchType: rule.MatchType,
	}

	values := [fieldCount]string{
		fieldMatch:  rule.Match,
		fieldEffect: rule.Effect,
		fieldColor:  rule.Color,
		fieldDelay:  strconv.Itoa(int(rule.Delay)),
	}
	for i := range e.inputs {
		input := textinput.New()
		input.Prompt = ""
		input.CharLimit = 128
		input.Width = 32
		input.SetValue(values[i])
		e.inputs[i] = input
	}
	e.inputs[fieldMatch].Placeholder = matchPlaceholder(category)
	e.inputs[fieldColor].Placeholder = "#00ff00"
	e.inputs[fieldMatch].Focus()
	return e
}

func matchPlaceholder(category ledstatus.Category) string {
	switch category {
	case ledstatus.CategoryAtCommand:
		return "WS_CUSTOM"
	case ledstatus.CategoryEvent:
		return "PrintStarted"
	default:
		return "M600"
	}
}

// fields lists the editable fields; match type only applies to G-code rules
func (e *ruleEditor) fields() []ruleField {
	if e.category == ledstatus.CategoryGcode {
		return []ruleField{fieldMatch, fieldMatchType, fieldEffect, fieldColor, fieldDelay}
	}
	return []ruleField{fieldMatch, fieldEffect, fieldColor, fieldDelay}
}

// move focuses the field delta positions away, wrapping around
func (e *ruleEditor) move(delta int) {
	fields := e.fields()
	pos := 0
	for i, f := range fields {
		if f == e.field {
			pos = i
		}
	}
	pos = (pos + delta + len(fields)) % len(fields)

	e.inputs[e.field].Blur()
	e.field = fields[pos]
	if e.field != fieldMatchType {
		e.inputs[e.field].Focus()
	}
}

// cycleMatchType steps through the G-code match types
func (e *ruleEditor) cycleMatchType(delta int) {
	pos := 0
	for i, mt := range matchTypes {
		if mt == e.matchType {
			pos = i
		}
	}
	e.matchType = matchTypes[(pos+delta+len(matchTypes))%len(matchTypes)]
}

// apply copies the inputs into rule
func (e *ruleEditor) apply(rule *ledstatus.TriggerRule) error {
	delay, err := strconv.Atoi(strings.TrimSpace(e.inputs[fieldDelay].Value()))
	if err != nil || delay < 0 {
		return fmt.Errorf("delay must be a whole number of milliseconds")
	}
	match := strings.TrimSpace(e.inputs[fieldMatch].Value())
	if match == "" {
		return fmt.Errorf("match must not be empty")
	}

	rule.Match = match
	rule.Effect = strings.TrimSpace(e.inputs[fieldEffect].Value())
	rule.Color = strings.TrimSpace(e.inputs[fieldColor].Value())
	rule.Delay = ledstatus.Number(delay)
	if e.category == ledstatus.CategoryGcode {
		rule.MatchType = e.matchType
	}
	return nil
}

func (m DashboardModel) currentCategory() ledstatus.Category {
	return ledstatus.AllCategories[m.CategoryCursor]
}

func (m DashboardModel) updateTriggersTab(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	panel := m.Session.Settings
	category := m.currentCategory()
	rules := panel.Rules(category)

	switch msg.String() {
	case "left", "h":
		m.CategoryCursor = (m.CategoryCursor + len(ledstatus.AllCategories) - 1) % len(ledstatus.AllCategories)
		m.RuleCursor = 0
	case "right", "l":
		m.CategoryCursor = (m.CategoryCursor + 1) % len(ledstatus.AllCategories)
		m.RuleCursor = 0
	case "up", "k":
		if m.RuleCursor > 0 {
			m.RuleCursor--
		}
	case "down", "j":
		if m.RuleCursor < len(rules)-1 {
			m.RuleCursor++
		}

	case "n":
		rule, err := panel.New(category)
		if err != nil {
			m.Status, m.StatusIsError = err.Error(), true
			return m, nil
		}
		m.Editor = newRuleEditor(category, rule, true)
		return m, textinput.Blink

	case "e", "enter":
		if len(rules) == 0 {
			return m, nil
		}
		rule, err := panel.Open(category, m.RuleCursor)
		if err != nil {
			m.Status, m.StatusIsError = err.Error(), true
			return m, nil
		}
		m.Editor = newRuleEditor(category, rule, false)
		return m, textinput.Blink

	case "d":
		if len(rules) == 0 {
			return m, nil
		}
		if err := panel.Delete(category, m.RuleCursor); err != nil {
			m.Status, m.StatusIsError = err.Error(), true
			return m, nil
		}
		if m.RuleCursor > 0 && m.RuleCursor >= len(rules)-1 {
			m.RuleCursor--
		}
		m.Unsaved = true

	case "t":
		if len(rules) == 0 {
			return m, nil
		}
		rule := rules[m.RuleCursor]
		return m.start("test "+rule.Match, func(ctx context.Context) error {
			return panel.TestLED(ctx, rule.Effect, rule.Color, int(rule.Delay))
		})

	case "s":
		return m.start("save triggers", panel.Save)

	case "r":
		return m.start("reload triggers", func(ctx context.Context) error {
			m.Session.API.InvalidateCache()
			return panel.Load(ctx)
		})
	}
	return m, nil
}

// updateEditor handles keys while the inline rule editor is open
func (m DashboardModel) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.Editor
	panel := m.Session.Settings

	switch msg.String() {
	case "esc":
		panel.Cancel()
		m.Editor = nil
		return m, nil

	case "tab", "down":
		e.move(1)
		return m, nil

	case "shift+tab", "up":
		e.move(-1)
		return m, nil

	case "enter":
		var applyErr error
		if err := panel.Edit(func(rule *ledstatus.TriggerRule) {
			applyErr = e.apply(rule)
		}); err != nil {
			e.err = err.Error()
			return m, nil
		}
		if applyErr != nil {
			e.err = applyErr.Error()
			return m, nil
		}
		if err := panel.Commit(); err != nil {
			e.err = err.Error()
			return m, nil
		}
		if e.isNew {
			m.RuleCursor = len(panel.Rules(e.category)) - 1
		}
		m.Editor = nil
		m.Unsaved = true
		m.Status, m.StatusIsError = "Rule updated, press s to save to the host", false
		return m, nil
	}

	if e.field == fieldMatchType {
		switch msg.String() {
		case "left", "h":
			e.cycleMatchType(-1)
		case "right", "l", " ":
			e.cycleMatchType(1)
		}
		return m, nil
	}

	var cmd tea.Cmd
	e.inputs[e.field], cmd = e.inputs[e.field].Update(msg)
	e.err = ""
	return m, cmd
}

func (m DashboardModel) renderTriggersTab() string {
	category := m.currentCategory()
	rules := m.Session.Settings.Rules(category)

	tabs := make([]string, 0, len(ledstatus.AllCategories))
	for _, c := range ledstatus.AllCategories {
		label := fmt.Sprintf("%s (%d)", c.Label(), len(m.Session.Settings.Rules(c)))
		if c == category {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, InactiveTabStyle.Render(label))
		}
	}
	parts := []string{lipgloss.JoinHorizontal(lipgloss.Top, tabs...), ""}

	if len(rules) == 0 && (m.Editor == nil || !m.Editor.isNew) {
		parts = append(parts, SubtitleStyle.Render("  No rules yet. Press n to add one."))
	}

	for i, rule := range rules {
		if m.Editor != nil && !m.Editor.isNew && i == m.RuleCursor {
			parts = append(parts, m.renderEditor())
			continue
		}
		parts = append(parts, m.renderCursorLine(formatRule(rule), m.Editor == nil && i == m.RuleCursor))
	}
	if m.Editor != nil && m.Editor.isNew {
		parts = append(parts, m.renderEditor())
	}

	if m.Unsaved {
		parts = append(parts, "", lipgloss.NewStyle().Foreground(WarningColor).Render("● Unsaved changes"))
	}

	help := "←/→ category • n new • e edit • d delete • t test • s save • r reload"
	if m.Editor != nil {
		help = "tab next field • enter apply • esc cancel"
		if m.Editor.field == fieldMatchType {
			help = "←/→ change match type • " + help
		}
	}
	parts = append(parts, "", HelpStyle.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// formatRule renders a rule as a single list line
func formatRule(rule ledstatus.TriggerRule) string {
	match := rule.Match
	if rule.MatchType != "" && rule.MatchType != ledstatus.MatchGcode {
		match += " [" + string(rule.MatchType) + "]"
	}
	swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(rule.Color)).Render("■")
	return fmt.Sprintf("%-24s %s %s %s, %dms", match, swatch, rule.Color, rule.Effect, int(rule.Delay))
}

// renderEditor renders the inline editor in place of the rule being edited
func (m DashboardModel) renderEditor() string {
	e := m.Editor

	lines := make([]string, 0, len(e.fields())+2)
	for _, f := range e.fields() {
		value := e.inputs[f].View()
		if f == fieldMatchType {
			value = "◀ " + string(e.matchType) + " ▶"
		}
		line := m.renderField(ruleFieldLabels[f], value, f == e.field)
		if f == e.field {
			line = ExpandedFieldStyle().Render(line)
		}
		lines = append(lines, line)
	}
	if e.err != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(ErrorColor).Render("✗ "+e.err))
	}

	title := "Edit rule"
	if e.isNew {
		title = "New " + e.category.Label() + " rule"
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true).Render(title)}, lines...)...)
	return InlineEditorStyle().Render(content)
}
