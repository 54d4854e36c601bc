package scheduler

import (
	"testing"
	"time"
)

func TestCronParser_Parse(t *testing.T) {
	parser := NewCronParser()

	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{
			name:       "valid cron - every minute",
			expression: "* * * * *",
			wantErr:    false,
		},
		{
			name:       "valid cron - with steps",
			expression: "*/5 * * * *",
			wantErr:    false,
		},
		{
			name:       "valid descriptor - hourly",
			expression: "@hourly",
			wantErr:    false,
		},
		{
			name:       "valid descriptor - every",
			expression: "@every 5m",
			wantErr:    false,
		},
		{
			name:       "invalid cron - too few fields",
			expression: "* * *",
			wantErr:    true,
		},
		{
			name:       "invalid cron - invalid value",
			expression: "60 * * * *",
			wantErr:    true,
		},
		{
			name:       "invalid descriptor",
			expression: "@fortnightly",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.expression)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCronParser_NextRun(t *testing.T) {
	parser := NewCronParser()
	after := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		expression string
		timezone   string
		want       time.Time
		wantErr    bool
	}{
		{
			name:       "every 5 minutes",
			expression: "*/5 * * * *",
			timezone:   "UTC",
			want:       time.Date(2024, 1, 1, 10, 35, 0, 0, time.UTC),
		},
		{
			name:       "daily at midnight",
			expression: "0 0 * * *",
			timezone:   "UTC",
			want:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "every interval",
			expression: "@every 5m",
			timezone:   "UTC",
			want:       time.Date(2024, 1, 1, 10, 35, 0, 0, time.UTC),
		},
		{
			name:       "wall clock in another zone",
			expression: "0 12 * * *",
			timezone:   "Asia/Tokyo",
			want:       time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC),
		},
		{
			name:       "invalid timezone",
			expression: "* * * * *",
			timezone:   "Invalid/Zone",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.NextRun(tt.expression, tt.timezone, after)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NextRun() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("NextRun() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadLocation(t *testing.T) {
	for _, tz := range []string{"", "Local"} {
		loc, err := LoadLocation(tz)
		if err != nil || loc != time.Local {
			t.Errorf("LoadLocation(%q) = %v, %v; want Local", tz, loc, err)
		}
	}

	loc, err := LoadLocation("UTC")
	if err != nil || loc.String() != "UTC" {
		t.Errorf("LoadLocation(UTC) = %v, %v", loc, err)
	}

	if _, err := LoadLocation("Invalid/Zone"); err == nil {
		t.Error("LoadLocation(Invalid/Zone) succeeded")
	}
}
