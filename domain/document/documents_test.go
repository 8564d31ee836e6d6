package document

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"hirehall/bizerror"
	"hirehall/client/s3"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func TestCandidatePaths(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should probe the stored key first, then legacy variants", func(t *testing.T) {
		Expect(candidatePaths("documents/123/resume.pdf")).To(Equal([]string{
			"documents/123/resume.pdf",
			"client-docs/documents/123/resume.pdf",
			"resumes/123/resume.pdf",
			"client-docs/resumes/123/resume.pdf",
			"123/resume.pdf",
		}))
	})

	t.Run("should swap resumes prefix to documents", func(t *testing.T) {
		Expect(candidatePaths("resumes/123/resume.pdf")).To(Equal([]string{
			"resumes/123/resume.pdf",
			"client-docs/resumes/123/resume.pdf",
			"documents/123/resume.pdf",
			"client-docs/documents/123/resume.pdf",
			"123/resume.pdf",
		}))
	})

	t.Run("should expand bare keys under every known prefix", func(t *testing.T) {
		Expect(candidatePaths("123/resume.pdf")).To(Equal([]string{
			"123/resume.pdf",
			"client-docs/123/resume.pdf",
			"resumes/123/resume.pdf",
			"client-docs/resumes/123/resume.pdf",
			"documents/123/resume.pdf",
			"client-docs/documents/123/resume.pdf",
		}))
	})

	t.Run("should strip leading slash and embedded container name", func(t *testing.T) {
		Expect(candidatePaths("/client-docs/documents/123/resume.pdf")[0]).
			To(Equal("documents/123/resume.pdf"))
	})

	t.Run("should not emit duplicates", func(t *testing.T) {
		paths := candidatePaths("documents/1/a.pdf")
		seen := map[string]bool{}
		for _, p := range paths {
			Expect(seen[p]).To(BeFalse())
			seen[p] = true
		}
	})
}

func TestResolveDownloadURL(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should sign the first candidate that exists", func(t *testing.T) {
		defer afterEach()
		DetailDocumentFunc = func(id types.ID, ctx context.Context) (*Document, error) {
			return &Document{ID: id, FileKey: "documents/123/resume.pdf"}, nil
		}
		probed := []string{}
		s3.IsObjectExistFunc = func(path string, ctx context.Context, options ...oss.Option) (bool, error) {
			probed = append(probed, path)
			return path == "resumes/123/resume.pdf", nil
		}
		s3.SignURLFunc = func(path string, expiredInSec int64, ctx context.Context) (string, error) {
			Expect(expiredInSec).To(Equal(int64(DownloadURLExpirySeconds)))
			return "https://signed.example/" + path, nil
		}

		url, err := ResolveDownloadURL(100, context.Background())
		Expect(err).To(BeNil())
		Expect(url).To(Equal("https://signed.example/resumes/123/resume.pdf"))
		Expect(probed).To(Equal([]string{
			"documents/123/resume.pdf",
			"client-docs/documents/123/resume.pdf",
			"resumes/123/resume.pdf",
		}))
	})

	t.Run("should skip probe errors and keep trying", func(t *testing.T) {
		defer afterEach()
		DetailDocumentFunc = func(id types.ID, ctx context.Context) (*Document, error) {
			return &Document{ID: id, FileKey: "123/resume.pdf"}, nil
		}
		s3.IsObjectExistFunc = func(path string, ctx context.Context, options ...oss.Option) (bool, error) {
			if path == "123/resume.pdf" {
				return false, errors.New("storage timeout")
			}
			return path == "client-docs/123/resume.pdf", nil
		}
		s3.SignURLFunc = func(path string, expiredInSec int64, ctx context.Context) (string, error) {
			return "https://signed.example/" + path, nil
		}

		url, err := ResolveDownloadURL(100, context.Background())
		Expect(err).To(BeNil())
		Expect(url).To(Equal("https://signed.example/client-docs/123/resume.pdf"))
	})

	t.Run("should report not found when no candidate exists", func(t *testing.T) {
		defer afterEach()
		DetailDocumentFunc = func(id types.ID, ctx context.Context) (*Document, error) {
			return &Document{ID: id, FileKey: "documents/123/resume.pdf"}, nil
		}
		s3.IsObjectExistFunc = func(path string, ctx context.Context, options ...oss.Option) (bool, error) {
			return false, nil
		}

		_, err := ResolveDownloadURL(100, context.Background())
		Expect(err).To(Equal(bizerror.ErrNotFound))
	})
}

func TestFillBlobMetadata(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should pick up size and content type from blob meta", func(t *testing.T) {
		defer afterEach()
		s3.GetObjectMetaFunc = func(path string, ctx context.Context, options ...oss.Option) (http.Header, error) {
			header := http.Header{}
			header.Set("Content-Length", "2048")
			header.Set("Content-Type", "application/pdf")
			return header, nil
		}

		record := Document{FileKey: "documents/123/resume.pdf"}
		fillBlobMetadata(&record, context.Background())
		Expect(record.FileSize).To(Equal(int64(2048)))
		Expect(record.ContentType).To(Equal("application/pdf"))
	})

	t.Run("should leave the record untouched when the probe fails", func(t *testing.T) {
		defer afterEach()
		s3.GetObjectMetaFunc = func(path string, ctx context.Context, options ...oss.Option) (http.Header, error) {
			return nil, errors.New("storage timeout")
		}

		record := Document{FileKey: "documents/123/resume.pdf"}
		fillBlobMetadata(&record, context.Background())
		Expect(record.FileSize).To(Equal(int64(0)))
		Expect(record.ContentType).To(BeEmpty())
	})
}

func afterEach() {
	DetailDocumentFunc = DetailDocument
	s3.IsObjectExistFunc = nil
	s3.SignURLFunc = nil
	s3.GetObjectMetaFunc = nil
}
