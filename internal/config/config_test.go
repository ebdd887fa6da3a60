package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/suite"

	"github.com/srediag/shm-procctl/pkg/procctl"
)

type ConfigTestSuite struct {
	suite.Suite
}

func (s *ConfigTestSuite) flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("dir", "", "")
	fs.String("file", "", "")
	fs.Int("slot-size", 0, "")
	fs.Int("max-slots", 0, "")
	fs.Duration("timeout", 0, "")
	return fs
}

func (s *ConfigTestSuite) TestDefaults() {
	c, err := Load("", s.parse("--dir", "/opt/server"))
	s.Require().NoError(err)
	s.Equal(procctl.DefaultLayout(), c.Layout())
	s.Equal(filepath.Join("/opt/server", "temp", "sharedmemory"), c.FilePath())
	s.Equal(30*time.Second, c.Wait.Timeout)
	s.Equal([]int{0}, c.Serve.Slots)
	s.Equal("info", c.Log.Level)
}

func (s *ConfigTestSuite) TestRequiresLocation() {
	_, err := Load("", nil)
	s.Require().Error(err)
}

func (s *ConfigTestSuite) TestFileEnvAndFlagPrecedence() {
	path := filepath.Join(s.T().TempDir(), "shmctl.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(`
file: /var/run/region
slot_size: 64
max_slots: 4
log:
  level: debug
serve:
  slots: [0, 2]
wait:
  timeout: 5s
`), 0o644))

	c, err := Load(path, nil)
	s.Require().NoError(err)
	s.Equal("/var/run/region", c.FilePath())
	s.Equal(64, c.Layout().SlotSize)
	s.Equal(4, c.Layout().MaxSlots)
	s.Equal("debug", c.Log.Level)
	s.Equal([]int{0, 2}, c.Serve.Slots)
	s.Equal(5*time.Second, c.Wait.Timeout)

	s.T().Setenv("SHMCTL_MAX_SLOTS", "8")
	c, err = Load(path, nil)
	s.Require().NoError(err)
	s.Equal(8, c.MaxSlots)

	c, err = Load(path, s.parse("--max-slots", "2", "--timeout", "1s"))
	s.Require().NoError(err)
	s.Equal(2, c.MaxSlots)
	s.Equal(time.Second, c.Wait.Timeout)
	s.Equal(64, c.SlotSize)
}

func (s *ConfigTestSuite) TestInvalidLayout() {
	_, err := Load("", s.parse("--dir", "/x", "--slot-size", "1"))
	s.Require().ErrorIs(err, procctl.ErrInvalidLayout)
}

func (s *ConfigTestSuite) TestWaitTimeoutMustBePositive() {
	_, err := Load("", s.parse("--dir", "/x", "--timeout", "0s"))
	s.Require().ErrorContains(err, "wait timeout")

	s.T().Setenv("SHMCTL_WAIT_TIMEOUT", "0")
	_, err = Load("", s.parse("--dir", "/x"))
	s.Require().ErrorContains(err, "wait timeout")
}

func (s *ConfigTestSuite) TestMissingFile() {
	_, err := Load(filepath.Join(s.T().TempDir(), "nope.yaml"), nil)
	s.Require().Error(err)
}

func (s *ConfigTestSuite) parse(args ...string) *pflag.FlagSet {
	fs := s.flags()
	s.Require().NoError(fs.Parse(args))
	return fs
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
