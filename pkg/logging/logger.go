package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

func init() {
	Log = logrus.New()
	Log.SetFormatter(&LineFormatter{})
	Log.SetOutput(os.Stdout)
	Log.SetLevel(logrus.InfoLevel)
}

// LineFormatter renders "<time> - <LEVEL> - <message> key=value ...".
type LineFormatter struct{}

func (f *LineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(entry.Time.Format("2006-01-02 15:04:05,000"))
	b.WriteString(" - ")
	b.WriteString(strings.ToUpper(entry.Level.String()))
	b.WriteString(" - ")
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// FileName returns the daily log file name for t.
func FileName(t time.Time) string {
	return "log_" + t.Format("2006-01-02") + ".log"
}

// Setup tees Log into today's file under dir. The returned closer releases the file.
func Setup(dir string) (io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, FileName(time.Now())), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	Log.SetOutput(io.MultiWriter(os.Stdout, f))
	return f, nil
}
