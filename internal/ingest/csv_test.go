package ingest

import (
	"math"
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr string
	}{
		{
			name:  "meters header",
			input: "altitude_m,u_wind,v_wind\n1000,5,0\n20000,25,10\n",
			want:  2,
		},
		{
			name:  "kilometer header converts",
			input: "altitude_km,u_wind,v_wind\n1.0,5,0\n20.0,25,10\n",
			want:  2,
		},
		{
			name:  "reordered columns with padding",
			input: "u_wind, v_wind, altitude_m\n5, 0, 1000\n25, 10, 20000\n",
			want:  2,
		},
		{
			name:    "missing wind column",
			input:   "altitude_m,u_wind\n1000,5\n",
			wantErr: "header",
		},
		{
			name:    "non-numeric value",
			input:   "altitude_m,u_wind,v_wind\n1000,five,0\n",
			wantErr: "row 2",
		},
		{
			name:    "zero altitude rejected",
			input:   "altitude_m,u_wind,v_wind\n0,5,0\n",
			wantErr: "altitude must be > 0",
		},
		{
			name:    "negative altitude rejected",
			input:   "altitude_m,u_wind,v_wind\n-100,5,0\n",
			wantErr: "altitude must be > 0",
		},
		{
			name:    "no data rows",
			input:   "altitude_m,u_wind,v_wind\n",
			wantErr: "no data rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, err := ReadCSV(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(samples) != tt.want {
				t.Fatalf("got %d samples, want %d", len(samples), tt.want)
			}
		})
	}
}

func TestReadCSVKilometerConversion(t *testing.T) {
	samples, err := ReadCSV(strings.NewReader("altitude_km,u_wind,v_wind\n1.5,5,-2\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(samples[0].Altitude-1500) > 1e-9 {
		t.Errorf("altitude %g, want 1500 m", samples[0].Altitude)
	}
	if samples[0].U != 5 || samples[0].V != -2 {
		t.Errorf("wind (%g, %g), want (5, -2)", samples[0].U, samples[0].V)
	}
}
