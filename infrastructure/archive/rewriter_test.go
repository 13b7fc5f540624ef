package archive_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/infrastructure/archive"
)

// writeZip creates a zip at path with the given name -> content members.
func writeZip(t *testing.T, path string, members map[string]string, order []string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for _, name := range order {
		entry, createErr := w.Create(name)
		require.NoError(t, createErr)
		_, writeErr := entry.Write([]byte(members[name]))
		require.NoError(t, writeErr)
	}
	require.NoError(t, w.Close())
}

func readAllMembers(t *testing.T, path string) map[string]string {
	t.Helper()

	names, err := archive.MemberNames(path)
	require.NoError(t, err)

	result := make(map[string]string, len(names))
	for _, name := range names {
		data, readErr := archive.ReadMember(path, name)
		require.NoError(t, readErr)
		result[name] = string(data)
	}
	return result
}

func TestAddMember(t *testing.T) {
	t.Parallel()

	t.Run("should append the new member and keep existing ones byte-identical", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "reports.zip")
		writeZip(t, path,
			map[string]string{
				"security_20240101.csv":   "a,b\n1,2\n",
				"components_20240101.csv": "x,y\n3,4\n",
			},
			[]string{"security_20240101.csv", "components_20240101.csv"},
		)

		// when
		err := archive.AddMember(path, "enhanced_security_20240101.csv",
			strings.NewReader("a,b,c\n1,2,3\n"))

		// then
		require.NoError(t, err)
		members := readAllMembers(t, path)
		assert.Len(t, members, 3)
		assert.Equal(t, "a,b\n1,2\n", members["security_20240101.csv"])
		assert.Equal(t, "x,y\n3,4\n", members["components_20240101.csv"])
		assert.Equal(t, "a,b,c\n1,2,3\n", members["enhanced_security_20240101.csv"])
	})

	t.Run("should preserve member order with the new member last", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "reports.zip")
		writeZip(t, path,
			map[string]string{"b.csv": "b", "a.csv": "a"},
			[]string{"b.csv", "a.csv"},
		)

		// when
		require.NoError(t, archive.AddMember(path, "c.csv", strings.NewReader("c")))

		// then
		names, err := archive.MemberNames(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"b.csv", "a.csv", "c.csv"}, names)
	})

	t.Run("should fail on name collision and leave the archive untouched", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "reports.zip")
		writeZip(t, path,
			map[string]string{"enhanced_security_20240101.csv": "old"},
			[]string{"enhanced_security_20240101.csv"},
		)
		before, err := os.ReadFile(path)
		require.NoError(t, err)

		// when
		addErr := archive.AddMember(path, "enhanced_security_20240101.csv",
			strings.NewReader("new"))

		// then
		require.ErrorIs(t, addErr, archive.ErrMemberExists)
		after, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, before, after)
	})

	t.Run("should fail when the archive does not exist", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "missing.zip")

		// when
		err := archive.AddMember(path, "x.csv", strings.NewReader("x"))

		// then
		require.Error(t, err)
	})

	t.Run("should fail when the archive is corrupt", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "corrupt.zip")
		require.NoError(t, os.WriteFile(path, []byte("not a zip at all"), 0o600))

		// when
		err := archive.AddMember(path, "x.csv", strings.NewReader("x"))

		// then
		require.Error(t, err)
	})
}

func TestReadMember(t *testing.T) {
	t.Parallel()

	t.Run("should return the member content", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "reports.zip")
		writeZip(t, path, map[string]string{"a.csv": "hello"}, []string{"a.csv"})

		// when
		data, err := archive.ReadMember(path, "a.csv")

		// then
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("should report a missing member", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "reports.zip")
		writeZip(t, path, map[string]string{"a.csv": "hello"}, []string{"a.csv"})

		// when
		_, err := archive.ReadMember(path, "b.csv")

		// then
		require.ErrorIs(t, err, archive.ErrMemberNotFound)
	})
}

func TestFindMemberByPrefix(t *testing.T) {
	t.Parallel()

	t.Run("should find the first member with the prefix", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "reports.zip")
		writeZip(t, path,
			map[string]string{
				"components_20240101.csv": "",
				"security_20240101.csv":   "",
			},
			[]string{"components_20240101.csv", "security_20240101.csv"},
		)

		// when
		name, err := archive.FindMemberByPrefix(path, "security")

		// then
		require.NoError(t, err)
		assert.Equal(t, "security_20240101.csv", name)
	})

	t.Run("should report when no member matches", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "reports.zip")
		writeZip(t, path, map[string]string{"a.csv": ""}, []string{"a.csv"})

		// when
		_, err := archive.FindMemberByPrefix(path, "security")

		// then
		require.ErrorIs(t, err, archive.ErrMemberNotFound)
	})
}

func TestEnhancedName(t *testing.T) {
	t.Parallel()

	t.Run("should prefix the original member name", func(t *testing.T) {
		t.Parallel()

		// given / when
		name := archive.EnhancedName("security_20240101.csv")

		// then
		assert.Equal(t, "enhanced_security_20240101.csv", name)
	})
}
