package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/note-inspector-go/internal/engine"
	"github.com/anime-shed/note-inspector-go/internal/logger"
	"github.com/anime-shed/note-inspector-go/internal/storage"
)

// DefaultExtensions are the reference image types read by default
var DefaultExtensions = []string{".jpg", ".jpeg", ".png"}

type blobReferenceRepository struct {
	store      storage.BlobStore
	prefix     string
	extensions []string
}

// NewReferenceRepository reads references from store. Each object whose
// extension is in extensions is one note labelled by its filename stem.
func NewReferenceRepository(store storage.BlobStore, prefix string, extensions []string) ReferenceRepository {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return &blobReferenceRepository{store: store, prefix: prefix, extensions: normalized}
}

// LabelFromName returns the filename stem: "notes/500.jpg" -> "500"
func LabelFromName(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}

func (r *blobReferenceRepository) Source() string {
	return r.store.Name()
}

func (r *blobReferenceRepository) ListReferences(ctx context.Context) ([]ReferenceInfo, error) {
	blobs, err := r.store.List(ctx, r.prefix)
	if err != nil {
		return nil, err
	}

	refs := make([]ReferenceInfo, 0, len(blobs))
	for _, b := range blobs {
		if !slices.Contains(r.extensions, strings.ToLower(path.Ext(b.Name))) {
			continue
		}
		refs = append(refs, ReferenceInfo{
			Label:   LabelFromName(b.Name),
			Name:    b.Name,
			Size:    b.Size,
			ModTime: b.ModTime,
			ETag:    b.ETag,
		})
	}
	slices.SortFunc(refs, func(a, b ReferenceInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return refs, nil
}

func (r *blobReferenceRepository) LoadReferences(ctx context.Context) ([]engine.ReferenceImage, error) {
	refs, err := r.ListReferences(ctx)
	if err != nil {
		return nil, err
	}

	images := make([]engine.ReferenceImage, 0, len(refs))
	for _, ref := range refs {
		data, err := r.store.Get(ctx, ref.Name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.WithError(err).WithFields(logrus.Fields{
				"reference": ref.Name,
				"store":     r.store.Name(),
			}).Warn("Skipping unreadable reference")
			continue
		}
		images = append(images, engine.ReferenceImage{Label: ref.Label, Source: ref.Name, Data: data})
	}
	return images, nil
}

func (r *blobReferenceRepository) Fingerprint(ctx context.Context) (string, error) {
	refs, err := r.ListReferences(ctx)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s\n", r.store.Name())
	for _, ref := range refs {
		fmt.Fprintf(h, "%s|%d|%d|%s\n", ref.Name, ref.Size, ref.ModTime.UnixNano(), ref.ETag)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
