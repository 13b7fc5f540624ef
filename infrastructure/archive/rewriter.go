// Package archive mutates the downloaded report bundle: it appends the
// enriched CSV as a new zip member without touching the existing members.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// EnhancedPrefix is prepended to the original member name to form the
// enriched member's name. Downstream CI pipelines glob for this prefix, so
// it is part of the tool's contract.
const EnhancedPrefix = "enhanced_"

// ErrMemberExists is returned when the requested member name is already
// present in the archive. Members are never silently overwritten.
var ErrMemberExists = errors.New("archive member already exists")

// ErrMemberNotFound is returned when a requested member is absent.
var ErrMemberNotFound = errors.New("archive member not found")

// EnhancedName derives the enriched member name from the original one.
func EnhancedName(member string) string {
	return EnhancedPrefix + member
}

// MemberNames lists the member names of the archive in stored order.
func MemberNames(archivePath string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %q: %w", archivePath, err)
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// FindMemberByPrefix returns the first member whose name starts with prefix.
func FindMemberByPrefix(archivePath, prefix string) (string, error) {
	names, err := MemberNames(archivePath)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: no member with prefix %q", ErrMemberNotFound, prefix)
}

// OpenMember returns a streaming reader over one member's decompressed
// content. Closing the returned reader also closes the underlying archive.
func OpenMember(archivePath, member string) (io.ReadCloser, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %q: %w", archivePath, err)
	}

	for _, f := range r.File {
		if f.Name != member {
			continue
		}
		rc, openErr := f.Open()
		if openErr != nil {
			r.Close()
			return nil, fmt.Errorf("failed to open member %q: %w", member, openErr)
		}
		return &memberReader{ReadCloser: rc, archive: r}, nil
	}
	r.Close()
	return nil, fmt.Errorf("%w: %q", ErrMemberNotFound, member)
}

type memberReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (m *memberReader) Close() error {
	err := m.ReadCloser.Close()
	if closeErr := m.archive.Close(); err == nil {
		err = closeErr
	}
	return err
}

// ReadMember returns the decompressed content of one member.
func ReadMember(archivePath, member string) ([]byte, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %q: %w", archivePath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != member {
			continue
		}
		rc, openErr := f.Open()
		if openErr != nil {
			return nil, fmt.Errorf("failed to open member %q: %w", member, openErr)
		}
		defer rc.Close()
		data, readErr := io.ReadAll(rc)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read member %q: %w", member, readErr)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrMemberNotFound, member)
}

// AddMember rewrites the archive with member appended. Existing members are
// carried over byte-for-byte (raw copy, no recompression) and their order is
// preserved. The operation fails with ErrMemberExists if the name is already
// taken, and the original archive is left untouched on any failure: the new
// bundle is written to a temp file and renamed over the original only after
// a clean close.
func AddMember(archivePath, member string, content io.Reader) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive %q: %w", archivePath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == member {
			return fmt.Errorf("%w: %q in %q", ErrMemberExists, member, archivePath)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(archivePath), ".rewrite-*.zip")
	if err != nil {
		return fmt.Errorf("failed to create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if writeErr := writeRewritten(tmp, &r.Reader, member, content); writeErr != nil {
		tmp.Close()
		return writeErr
	}
	if closeErr := tmp.Close(); closeErr != nil {
		return fmt.Errorf("failed to finish temp archive: %w", closeErr)
	}
	// Release the open handle before the rename for Windows' sake.
	r.Close()

	if renameErr := os.Rename(tmpPath, archivePath); renameErr != nil {
		return fmt.Errorf("failed to replace archive %q: %w", archivePath, renameErr)
	}
	return nil
}

func writeRewritten(dst io.Writer, src *zip.Reader, member string, content io.Reader) error {
	w := zip.NewWriter(dst)

	for _, f := range src.File {
		raw, err := f.OpenRaw()
		if err != nil {
			return fmt.Errorf("failed to read member %q: %w", f.Name, err)
		}
		header := f.FileHeader
		out, err := w.CreateRaw(&header)
		if err != nil {
			return fmt.Errorf("failed to copy member %q: %w", f.Name, err)
		}
		if _, err := io.Copy(out, raw); err != nil {
			return fmt.Errorf("failed to copy member %q: %w", f.Name, err)
		}
	}

	out, err := w.Create(member)
	if err != nil {
		return fmt.Errorf("failed to create member %q: %w", member, err)
	}
	if _, err := io.Copy(out, content); err != nil {
		return fmt.Errorf("failed to write member %q: %w", member, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}
