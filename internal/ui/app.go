package ui

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	log "github.com/sirupsen/logrus"

	"github.com/clinicboard/annotator/internal/session"
)

// Editor is the annotation screen for one image: the image with the
// annotator laid over it, the toolbar and a status line.
type Editor struct {
	ctx       context.Context
	window    fyne.Window
	session   *session.Session
	annotator *Annotator
	toolbar   *Toolbar
	status    *widget.Label
	saving    bool
	content   fyne.CanvasObject
}

// NewEditor builds the screen. base may be nil. Dialogs open over w.
func NewEditor(ctx context.Context, w fyne.Window, s *session.Session, base image.Image) *Editor {
	e := &Editor{
		ctx:     ctx,
		window:  w,
		session: s,
		status:  widget.NewLabel("Ready"),
	}
	e.annotator = NewAnnotator(s)
	e.toolbar = NewToolbar(e.annotator, e.Save)
	e.annotator.OnChange = e.changed
	e.annotator.OnTextRequest = e.askText

	var background fyne.CanvasObject = canvas.NewRectangle(color.Gray{Y: 40})
	if base != nil {
		img := canvas.NewImageFromImage(base)
		// annotations are normalized to the whole image, so it must fill
		// the same area as the annotator
		img.FillMode = canvas.ImageFillStretch
		background = img
	}
	e.content = container.NewBorder(e.toolbar.Content(), e.status, nil, nil,
		container.NewStack(background, e.annotator))
	return e
}

func (e *Editor) Content() fyne.CanvasObject { return e.content }

func (e *Editor) Status() string { return e.status.Text }

func (e *Editor) changed() {
	e.toolbar.Update()
	if !e.saving && e.session.Dirty() {
		e.status.SetText("Unsaved changes")
	}
}

func (e *Editor) askText() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("Label")
	dialog.ShowForm("Add label", "Add", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Text", entry)},
		func(ok bool) {
			if ok {
				e.annotator.ConfirmText(entry.Text)
			} else {
				e.annotator.CancelText()
			}
		}, e.window)
	e.window.Canvas().Focus(entry)
}

// Save stores the document in the background. The save button stays
// disabled until the store answers.
func (e *Editor) Save() {
	if e.saving {
		return
	}
	e.saving = true
	e.toolbar.SetSaving(true)
	e.status.SetText("Saving…")

	done := e.session.SaveAsync(e.ctx)
	go func() {
		err := <-done
		fyne.Do(func() {
			e.saving = false
			e.toolbar.SetSaving(false)
			switch {
			case err != nil:
				log.WithError(err).Error("[UI] save failed")
				e.status.SetText(fmt.Sprintf("Save failed: %v", err))
			case e.session.Dirty():
				e.status.SetText("Saved, newer changes not saved yet")
			default:
				e.status.SetText("Saved")
			}
		})
	}()
}

// RunApp shows the editor for s until the window is closed. Closing with
// unsaved changes asks first.
func RunApp(ctx context.Context, title string, s *session.Session, base image.Image) {
	a := app.NewWithID("com.clinicboard.annotator")
	w := a.NewWindow(title)

	e := NewEditor(ctx, w, s, base)
	w.SetContent(e.Content())
	w.Resize(windowSize(base))
	w.SetCloseIntercept(func() {
		if !s.Dirty() {
			w.Close()
			return
		}
		dialog.ShowConfirm("Unsaved annotations", "Close without saving?", func(ok bool) {
			if ok {
				w.Close()
			}
		}, w)
	})
	log.WithField("key", s.Key().Path()).Info("[UI] editor open")
	w.ShowAndRun()
}

// windowSize keeps the image aspect ratio at a comfortable width.
func windowSize(base image.Image) fyne.Size {
	const width = 1024
	if base == nil || base.Bounds().Dx() == 0 {
		return fyne.NewSize(width, 768)
	}
	b := base.Bounds()
	h := float32(width) * float32(b.Dy()) / float32(b.Dx())
	// toolbar and status line
	return fyne.NewSize(width, h+90)
}
