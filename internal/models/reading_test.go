package models

import "testing"

func TestClassifyReading(t *testing.T) {
	cases := []struct {
		name              string
		turbidity, ph, ec float64
		want              ReadingStatus
	}{
		{"calm baseline", 6.0, 8.0, 33.0, ReadingStatusOK},
		{"turbidity warning", 8.0, 8.0, 33.0, ReadingStatusWarning},
		{"ph warning", 6.0, 8.6, 33.0, ReadingStatusWarning},
		{"ec warning", 6.0, 8.0, 36.5, ReadingStatusWarning},
		{"turbidity alert", 10.5, 8.0, 33.0, ReadingStatusAlert},
		{"ph alert", 6.0, 9.1, 33.0, ReadingStatusAlert},
		{"ec alert", 6.0, 8.0, 41.0, ReadingStatusAlert},
		{"alert beats warning", 11.0, 8.6, 33.0, ReadingStatusAlert},
		{"thresholds are exclusive", 7.5, 8.5, 36.0, ReadingStatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyReading(tc.turbidity, tc.ph, tc.ec); got != tc.want {
				t.Errorf("ClassifyReading(%v, %v, %v) = %s, want %s", tc.turbidity, tc.ph, tc.ec, got, tc.want)
			}
		})
	}
}
