package ui

import (
	"image/color"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/clinicboard/annotator/internal/session"
	"github.com/clinicboard/annotator/internal/state"
)

var toolLabels = map[state.Tool]string{
	state.ToolPen:    "Pen",
	state.ToolText:   "Text",
	state.ToolEraser: "Eraser",
}

type colorSwatch struct {
	widget.BaseWidget
	Color    string
	OnTapped func(string)
}

func newColorSwatch(c string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(state.RGBA(s.Color))
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

// Toolbar holds the tool, colour and width pickers and the history buttons
// for one Annotator.
type Toolbar struct {
	annotator *Annotator

	tools  *widget.RadioGroup
	widths *widget.Select
	undo   *widget.Button
	redo   *widget.Button
	clear  *widget.Button
	save   *widget.Button

	content fyne.CanvasObject
}

func NewToolbar(a *Annotator, onSave func()) *Toolbar {
	t := &Toolbar{annotator: a}
	s := a.Session()

	labels := make([]string, 0, len(state.Tools))
	for _, tool := range state.Tools {
		labels = append(labels, toolLabels[tool])
	}
	t.tools = widget.NewRadioGroup(labels, func(label string) {
		for tool, l := range toolLabels {
			if l == label {
				a.Edit(func(s *session.Session) { s.SetTool(tool) })
			}
		}
	})
	t.tools.Horizontal = true
	t.tools.Required = true
	t.tools.SetSelected(toolLabels[s.Tool()])

	swatches := container.NewHBox()
	for _, c := range state.Palette {
		swatches.Add(newColorSwatch(c, func(c string) {
			a.Edit(func(s *session.Session) { s.SetColor(c) })
		}))
	}

	sizes := make([]string, 0, len(state.WidthPresets))
	for _, w := range state.WidthPresets {
		sizes = append(sizes, strconv.FormatFloat(w, 'f', -1, 64))
	}
	t.widths = widget.NewSelect(sizes, func(v string) {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			a.Edit(func(s *session.Session) { s.SetWidth(w) })
		}
	})
	t.widths.SetSelected(strconv.FormatFloat(s.Width(), 'f', -1, 64))

	t.undo = widget.NewButtonWithIcon("", theme.ContentUndoIcon(), func() {
		a.Edit(func(s *session.Session) { s.Undo() })
	})
	t.redo = widget.NewButtonWithIcon("", theme.ContentRedoIcon(), func() {
		a.Edit(func(s *session.Session) { s.Redo() })
	})
	t.clear = widget.NewButtonWithIcon("Clear", theme.DeleteIcon(), func() {
		a.Edit(func(s *session.Session) { s.Clear() })
	})
	t.save = widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), onSave)

	t.content = container.NewHBox(
		t.tools,
		widget.NewSeparator(),
		swatches,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		t.widths,
		widget.NewSeparator(),
		t.undo,
		t.redo,
		t.clear,
		layout.NewSpacer(),
		t.save,
	)
	t.Update()
	return t
}

func (t *Toolbar) Content() fyne.CanvasObject { return t.content }

// Update enables the history buttons the session can act on.
func (t *Toolbar) Update() {
	s := t.annotator.Session()
	setEnabled(t.undo, s.CanUndo())
	setEnabled(t.redo, s.CanRedo())
}

// SetSaving disables the save button while a save is outstanding.
func (t *Toolbar) SetSaving(saving bool) {
	setEnabled(t.save, !saving)
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}
