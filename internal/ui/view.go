// Package ui renders a connection panel in the terminal.
package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/srg/gattpanel/internal/bledb"
	"github.com/srg/gattpanel/internal/device"
	"github.com/srg/gattpanel/internal/panel"
)

const (
	TitleServices           = "GATT Services"
	TitleRawServices        = "(Raw JSON) Services"
	TitleRawCharacteristics = "(Raw JSON) Characteristics"
)

// ViewModel is everything Render needs, captured from a panel at one instant.
type ViewModel struct {
	Peripheral   device.Peripheral
	Connecting   bool
	Connected    bool
	Hint         string
	Services     []panel.NormalizedService
	ServicesErr  error
	Info         *device.ServiceInfo
	PrimaryLabel string

	// Spinner is the current spinner frame, shown while connecting.
	Spinner string
}

// NewViewModel snapshots p. The normalized service list is recomputed on
// every call.
func NewViewModel(p *panel.Panel) ViewModel {
	st := p.State()
	services, err := p.Services()
	return ViewModel{
		Peripheral:   p.Peripheral(),
		Connecting:   st.Connecting(),
		Connected:    st.Connected(),
		Hint:         st.HintText(),
		Services:     services,
		ServicesErr:  err,
		Info:         st.Info,
		PrimaryLabel: p.PrimaryLabel(),
	}
}

// Render draws the panel body followed by the button bar.
func Render(vm ViewModel, th Theme) string {
	var sections []string

	switch {
	case vm.Connecting:
		line := th.Hint.Render(vm.Hint)
		if vm.Spinner != "" {
			line = th.Spinner.Render(vm.Spinner) + " " + line
		}
		sections = append(sections, line)
	case vm.Connected:
		if vm.Hint != "" {
			sections = append(sections, renderHint(vm.Hint, th))
		}
		sections = append(sections,
			renderIdentity(vm.Peripheral, th),
			renderServices(vm, th),
			renderRaw(vm.Info, th),
		)
	default:
		if vm.Hint != "" {
			sections = append(sections, renderHint(vm.Hint, th))
		}
	}

	sections = append(sections, renderButtons(vm.PrimaryLabel, th))
	return strings.Join(sections, "\n\n")
}

func renderHint(hint string, th Theme) string {
	if strings.HasPrefix(hint, panel.ErrorHintPrefix) {
		return th.Error.Render(hint)
	}
	return th.Hint.Render(hint)
}

func renderIdentity(p device.Peripheral, th Theme) string {
	return th.Name.Render(p.DisplayName()) + "\n" +
		th.Label.Render("id: ") + p.ID
}

func renderServices(vm ViewModel, th Theme) string {
	title := th.Section.Render(TitleServices)
	if vm.ServicesErr != nil {
		return title + "\n" + th.Error.Render(vm.ServicesErr.Error())
	}
	if len(vm.Services) == 0 {
		return title + "\n" + th.Label.Render("(none)")
	}

	t := tree.Root(title).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(th.Tree)

	for _, svc := range vm.Services {
		label := th.Service.Render(svc.UUID)
		if name := bledb.LookupService(svc.UUID); name != "" {
			label += " " + th.Known.Render(name)
		}

		node := tree.Root(label).Enumerator(tree.RoundedEnumerator).EnumeratorStyle(th.Tree)
		for _, c := range svc.Characteristics {
			node.Child(CharacteristicView{Ref: c}.Render(th))
		}
		t.Child(node)
	}
	return t.String()
}

// renderRaw shows the discovery payload split into its two top-level arrays.
func renderRaw(info *device.ServiceInfo, th Theme) string {
	var parts map[string]json.RawMessage
	if info != nil {
		data, err := json.Marshal(info)
		if err == nil {
			err = json.Unmarshal(data, &parts)
		}
		if err != nil {
			return th.Section.Render(TitleRawServices) + "\n" + th.Error.Render(err.Error())
		}
	}

	return rawSection(TitleRawServices, parts["services"], th) + "\n\n" +
		rawSection(TitleRawCharacteristics, parts["characteristics"], th)
}

func rawSection(title string, raw json.RawMessage, th Theme) string {
	body := "null"
	if len(raw) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			body = fmt.Sprintf("<invalid JSON: %v>", err)
		} else {
			body = buf.String()
		}
	}

	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = th.Raw.Render(l)
	}
	return th.Section.Render(title) + "\n" + strings.Join(lines, "\n")
}

func renderButtons(primary string, th Theme) string {
	return th.Button.Render("[ "+primary+" ]") + "  " + th.Button.Render("[ "+panel.LabelClose+" ]")
}
