package core

import (
	"fmt"
	"io"
	"strings"
)

// Payload умеет отрисовать себя и сообщает свой content type.
// Вложенный payload отрисовывается вызовом его Render с тем же w.
type Payload interface {
	ContentType() string
	Render(w io.Writer) error
}

// TextPlain задает content type текстового payload.
const TextPlain = "text/plain; charset=utf-8"

// TextPayload накапливает простой текст.
type TextPayload struct {
	b strings.Builder
}

// NewTextPayload создает payload с начальным текстом.
func NewTextPayload(text string) *TextPayload {
	p := &TextPayload{}
	p.b.WriteString(text)
	return p
}

func (p *TextPayload) ContentType() string { return TextPlain }

// Add дописывает текст.
func (p *TextPayload) Add(text string) *TextPayload {
	p.b.WriteString(text)
	return p
}

// Addf дописывает форматированный текст.
func (p *TextPayload) Addf(format string, args ...any) *TextPayload {
	fmt.Fprintf(&p.b, format, args...)
	return p
}

// Set заменяет содержимое.
func (p *TextPayload) Set(text string) {
	p.b.Reset()
	p.b.WriteString(text)
}

func (p *TextPayload) String() string { return p.b.String() }

func (p *TextPayload) Render(w io.Writer) error {
	_, err := io.WriteString(w, p.b.String())
	return err
}
