package migration

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/connkeeper/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMigrator 内存中的迁移器，按版本号模拟 golang-migrate 的行为
type fakeMigrator struct {
	files   []MigrationFile
	version uint
	dirty   bool
	calls   []string
	err     error
}

func newFakeMigrator() *fakeMigrator {
	return &fakeMigrator{files: []MigrationFile{{1, "create_app_metadata"}, {2, "index_app_metadata_updated_at"}}}
}

func (f *fakeMigrator) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeMigrator) Up(context.Context) error {
	if err := f.record("up"); err != nil {
		return err
	}
	f.version = uint(len(f.files))
	return nil
}

func (f *fakeMigrator) Down(context.Context) error {
	if err := f.record("down"); err != nil {
		return err
	}
	if f.version > 0 {
		f.version--
	}
	return nil
}

func (f *fakeMigrator) DownAll(context.Context) error {
	if err := f.record("down_all"); err != nil {
		return err
	}
	f.version = 0
	return nil
}

func (f *fakeMigrator) Steps(_ context.Context, n int) error {
	if err := f.record("steps"); err != nil {
		return err
	}
	f.version = uint(int(f.version) + n)
	return nil
}

func (f *fakeMigrator) Goto(_ context.Context, version uint) error {
	if err := f.record("goto"); err != nil {
		return err
	}
	f.version = version
	return nil
}

func (f *fakeMigrator) Force(_ context.Context, version int) error {
	if err := f.record("force"); err != nil {
		return err
	}
	f.version, f.dirty = uint(version), false
	return nil
}

func (f *fakeMigrator) Version(context.Context) (uint, bool, error) {
	return f.version, f.dirty, nil
}

func (f *fakeMigrator) Status(context.Context) ([]MigrationStatus, error) {
	return buildStatus(f.files, f.version, f.dirty), nil
}

func (f *fakeMigrator) Info(context.Context) (*MigrationInfo, error) {
	return buildInfo(f.files, f.version, f.dirty), nil
}

func (f *fakeMigrator) Close() error { return nil }

func newTestCLI(m Migrator) (*CLI, *bytes.Buffer) {
	var buf bytes.Buffer
	cli := NewCLI(m)
	cli.SetOutput(&buf)
	return cli, &buf
}

func TestCLI_Run(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantCall    string
		wantVersion uint
		wantOutput  string
	}{
		{"up", []string{"up"}, "up", 2, "Migrations complete. Current version: 2"},
		{"down", []string{"down"}, "down", 0, "Rollback complete. Current version: 0"},
		{"reset", []string{"reset"}, "down_all", 0, "All migrations rolled back."},
		{"steps", []string{"steps", "1"}, "steps", 1, "Applying 1 migration(s)..."},
		{"goto", []string{"goto", "2"}, "goto", 2, "Migration complete. Current version: 2"},
		{"force", []string{"force", "1"}, "force", 1, "Version forced to 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFakeMigrator()
			cli, out := newTestCLI(m)

			require.NoError(t, cli.Run(testutil.TestContext(t), tt.args))
			assert.Equal(t, []string{tt.wantCall}, m.calls)
			assert.Equal(t, tt.wantVersion, m.version)
			assert.Contains(t, out.String(), tt.wantOutput)
		})
	}
}

func TestCLI_RunUsageErrors(t *testing.T) {
	tests := [][]string{
		nil,
		{"sideways"},
		{"steps"},
		{"steps", "x"},
		{"goto", "-1"},
		{"force", "1", "2"},
	}

	for _, args := range tests {
		cli, _ := newTestCLI(newFakeMigrator())
		err := cli.Run(testutil.TestContext(t), args)
		assert.ErrorIs(t, err, ErrUsage, "args=%v", args)
	}
}

func TestCLI_PropagatesMigratorError(t *testing.T) {
	m := newFakeMigrator()
	m.err = errors.New("lock timeout")
	cli, _ := newTestCLI(m)

	err := cli.Run(testutil.TestContext(t), []string{"up"})
	assert.ErrorIs(t, err, m.err)
}

func TestCLI_Version(t *testing.T) {
	m := newFakeMigrator()
	cli, out := newTestCLI(m)
	ctx := testutil.TestContext(t)

	require.NoError(t, cli.RunVersion(ctx))
	assert.Contains(t, out.String(), "No migrations applied yet.")

	out.Reset()
	m.version, m.dirty = 1, true
	require.NoError(t, cli.RunVersion(ctx))
	assert.Equal(t, "Current version: 1 (dirty)\n", out.String())
}

func TestCLI_Status(t *testing.T) {
	m := newFakeMigrator()
	m.version = 1
	cli, out := newTestCLI(m)

	require.NoError(t, cli.Run(testutil.TestContext(t), []string{"status"}))
	got := out.String()
	assert.Contains(t, got, "VERSION")
	assert.Regexp(t, `000001\s+create_app_metadata\s+Applied`, got)
	assert.Regexp(t, `000002\s+index_app_metadata_updated_at\s+Pending`, got)
	assert.Contains(t, got, "Total: 2, Applied: 1, Pending: 1")
}

func TestCLI_Info(t *testing.T) {
	m := newFakeMigrator()
	m.version = 2
	cli, out := newTestCLI(m)

	require.NoError(t, cli.Run(testutil.TestContext(t), []string{"info"}))
	assert.Contains(t, out.String(), "Applied Migrations: 2")
	assert.Contains(t, out.String(), "Pending Migrations: 0")
}
