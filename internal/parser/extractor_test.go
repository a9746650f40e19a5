package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor 测试用提取器，记录是否被调用
type fakeExtractor struct {
	text   string
	err    error
	called int
}

func (f *fakeExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error) {
	f.called++
	return f.text, nil, f.err
}

func TestDocumentExtractor_TXT(t *testing.T) {
	d := NewDocumentExtractor(nil, nil)

	text, err := d.Parse(context.Background(), []byte("  plain resume text  \n\nsecond line"), "resume.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain resume text\nsecond line", text)
}

func TestDocumentExtractor_DispatchByExtension(t *testing.T) {
	pdf := &fakeExtractor{text: "pdf text"}
	tika := &fakeExtractor{text: "tika text"}
	d := NewDocumentExtractor(pdf, tika)

	text, err := d.Parse(context.Background(), []byte{1, 2, 3}, "Resume.PDF")
	require.NoError(t, err)
	assert.Equal(t, "pdf text", text)
	assert.Equal(t, 1, pdf.called)
	assert.Equal(t, 0, tika.called)

	text, err = d.Parse(context.Background(), []byte{1, 2, 3}, "resume.docx")
	require.NoError(t, err)
	assert.Equal(t, "tika text", text)
	assert.Equal(t, 1, tika.called)

	_, err = d.Parse(context.Background(), []byte{1, 2, 3}, "resume.doc")
	require.NoError(t, err)
	assert.Equal(t, 2, tika.called)
}

func TestDocumentExtractor_UnsupportedFormat(t *testing.T) {
	d := NewDocumentExtractor(&fakeExtractor{}, &fakeExtractor{})

	_, err := d.Parse(context.Background(), []byte{1}, "resume.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "不支持的文件格式")
}

func TestDocumentExtractor_MissingTika(t *testing.T) {
	d := NewDocumentExtractor(&fakeExtractor{}, nil)

	_, err := d.Parse(context.Background(), []byte{1}, "resume.docx")
	require.Error(t, err)
}

func TestTikaExtractor(t *testing.T) {
	var gotContentType, gotAccept, gotResourceName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/tika", r.URL.Path)
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		gotResourceName = r.Header.Get("X-Tika-Resource-Name")
		_, _ = w.Write([]byte("extracted document text"))
	}))
	defer srv.Close()

	e := NewTikaExtractor(srv.URL)
	text, metadata, err := e.ExtractTextFromBytes(context.Background(), []byte("raw bytes"), "resume.docx")

	require.NoError(t, err)
	assert.Equal(t, "extracted document text", text)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", gotContentType)
	assert.Equal(t, "text/plain", gotAccept)
	assert.Equal(t, "resume.docx", gotResourceName)
	assert.Equal(t, len("extracted document text"), metadata["text_length"])
}

func TestTikaExtractor_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	e := NewTikaExtractor(srv.URL)
	_, _, err := e.ExtractTextFromBytes(context.Background(), []byte("raw"), "resume.doc")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}
