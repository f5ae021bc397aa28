package server

import (
	"context"

	"github.com/genrelay/genrelay/llm"
)

// stubModel is an llm.Client that returns canned replies and records calls.
type stubModel struct {
	textReply  string
	imageReply string
	err        error

	textCalls  []string
	imageCalls []imageCall
}

type imageCall struct {
	instruction string
	img         llm.Image
}

func (m *stubModel) GenerateText(_ context.Context, prompt string) (string, error) {
	m.textCalls = append(m.textCalls, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.textReply, nil
}

func (m *stubModel) GenerateFromImage(_ context.Context, instruction string, img llm.Image) (string, error) {
	m.imageCalls = append(m.imageCalls, imageCall{instruction: instruction, img: img})
	if m.err != nil {
		return "", m.err
	}
	return m.imageReply, nil
}

// stubFetcher is an ImageFetcher that returns a canned image or error.
type stubFetcher struct {
	img  llm.Image
	err  error
	urls []string
}

func (f *stubFetcher) FetchImage(_ context.Context, rawURL string) (llm.Image, error) {
	f.urls = append(f.urls, rawURL)
	if f.err != nil {
		return llm.Image{}, f.err
	}
	return f.img, nil
}
