package cliconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/rs/zerolog"
)

const syslogIdentifier = "led-blinker"

// journalWriter is a zerolog.LevelWriter that sends each event to the
// systemd journal with its fields as journal fields.
type journalWriter struct{}

func (journalWriter) Write(p []byte) (int, error) {
	return journalWriter{}.WriteLevel(zerolog.NoLevel, p)
}

func (journalWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	msg, fields := journalFields(p)
	if err := journal.Send(msg, mapLevelToPriority(level), fields); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to send to journal: %v\n", err)
		return 0, err
	}
	return len(p), nil
}

// useJournal reports whether stderr is connected to journald.
func useJournal() bool {
	return os.Getenv("JOURNAL_STREAM") != "" && journal.Enabled()
}

// journalFields splits a zerolog JSON event into the message and upper-cased
// journal fields. Non-JSON input is sent as the message unchanged.
func journalFields(p []byte) (string, map[string]string) {
	fields := map[string]string{"SYSLOG_IDENTIFIER": syslogIdentifier}

	var event map[string]interface{}
	if err := json.Unmarshal(p, &event); err != nil {
		return strings.TrimSpace(string(p)), fields
	}

	msg, _ := event[zerolog.MessageFieldName].(string)
	for k, v := range event {
		switch k {
		case zerolog.MessageFieldName, zerolog.LevelFieldName, zerolog.TimestampFieldName:
			continue
		}
		key := strings.ToUpper(k)
		switch val := v.(type) {
		case string:
			fields[key] = val
		case bool:
			fields[key] = fmt.Sprintf("%t", val)
		case float64:
			fields[key] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			b, _ := json.Marshal(val)
			fields[key] = string(b)
		}
	}
	return msg, fields
}

func mapLevelToPriority(level zerolog.Level) journal.Priority {
	switch level {
	case zerolog.PanicLevel, zerolog.FatalLevel:
		return journal.PriCrit
	case zerolog.ErrorLevel:
		return journal.PriErr
	case zerolog.WarnLevel:
		return journal.PriWarning
	case zerolog.InfoLevel, zerolog.NoLevel:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}
