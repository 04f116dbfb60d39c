package analysis

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	Init(logger)
	os.Exit(m.Run())
}
