package seed

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"unicode"

	"feedhub/internal/storage"
	"feedhub/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
)

// SignupInput returns a fake account that passes signup validation. The
// index keeps emails unique within one run.
func SignupInput(i int, password string) validation.SignupInput {
	first := lettersOnly(gofakeit.FirstName())
	last := lettersOnly(gofakeit.LastName())
	name := strings.TrimSpace(first + " " + last)
	if len(name) < 3 {
		name = "Demo User"
	}
	local := strings.ToLower(first + last)
	if local == "" {
		local = "user"
	}
	return validation.SignupInput{
		Email:    fmt.Sprintf("%s%d@example.com", local, i),
		Password: password,
		Name:     name,
	}
}

// PostInput returns fake post text within the title and content rules.
func PostInput() validation.PostInput {
	return validation.PostInput{
		Title:   clampTitle(gofakeit.Sentence(gofakeit.Number(2, 6))),
		Content: clamp(gofakeit.Paragraph(1, gofakeit.Number(2, 4), gofakeit.Number(6, 12), " "), 5, 2000, "Lorem ipsum"),
	}
}

// ImageUpload renders a small solid-colour PNG.
func ImageUpload() (*storage.Upload, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	c := color.RGBA{
		R: uint8(gofakeit.Number(0, 255)),
		G: uint8(gofakeit.Number(0, 255)),
		B: uint8(gofakeit.Number(0, 255)),
		A: 255,
	}
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return &storage.Upload{Filename: gofakeit.UUID() + ".png", ContentType: "image/png", Data: buf.Bytes()}, nil
}

func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && unicode.IsLetter(r) {
			return r
		}
		return -1
	}, s)
}

// clampTitle drops characters outside the title charset.
func clampTitle(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return r
		case strings.ContainsRune(" -_.,!?", r):
			return r
		}
		return -1
	}, s)
	return clamp(s, 5, 100, "Untitled")
}

func clamp(s string, minLen, maxLen int, filler string) string {
	s = strings.TrimSpace(s)
	for len(s) < minLen {
		s = strings.TrimSpace(s + " " + filler)
	}
	if len(s) > maxLen {
		s = strings.TrimSpace(s[:maxLen])
	}
	return s
}
