package telemetry

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestStreamSource_Consume(t *testing.T) {
	input := strings.Join([]string{
		"$GPGSV,3,1,11,03,03,111,00*4A",
		"",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48",
		"not a sentence",
	}, "\r\n")

	s := NewStreamSource()
	if err := s.Consume(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	sample, ok := s.Sample()
	if !ok {
		t.Fatal("Expected a sample")
	}
	if !sample.HasPosition() || sample.Altitude == nil {
		t.Fatalf("Expected position and altitude from GGA, got %+v", sample)
	}
	if math.Abs(*sample.GroundTrack-54.7) > 1e-9 || math.Abs(*sample.GroundSpeed-5.5) > 1e-9 {
		t.Errorf("Expected track and speed from VTG, got %f %f", *sample.GroundTrack, *sample.GroundSpeed)
	}
}

func TestStreamSource_TooManyParseErrors(t *testing.T) {
	input := strings.Repeat("$GPGGA,garbage\n", 3)

	s := NewStreamSource(WithParseErrorsThreshold(3))
	err := s.Consume(context.Background(), strings.NewReader(input))
	if !errors.Is(err, ErrTooManyParseErrors) {
		t.Fatalf("Expected ErrTooManyParseErrors, got %v", err)
	}
}

func TestStreamSource_ProprietarySentences(t *testing.T) {
	input := strings.Repeat("$PMTK001,604,3*32\n$PGTOP,11,3*6F\n", 5) +
		"$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48\n"

	s := NewStreamSource(WithParseErrorsThreshold(3))
	if err := s.Consume(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Expected proprietary sentences to be skipped, got %v", err)
	}
	if _, ok := s.Sample(); !ok {
		t.Error("Expected a sample from VTG")
	}
}

func TestStreamSource_ParseErrorsReset(t *testing.T) {
	valid := "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48\n"
	bad := "$GPGGA,garbage\n"
	input := bad + bad + valid + bad + bad + valid

	s := NewStreamSource(WithParseErrorsThreshold(3))
	if err := s.Consume(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Expected counter reset on valid sentence, got %v", err)
	}
}

func TestStreamSource_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewStreamSource()
	err := s.Consume(ctx, strings.NewReader("$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48\n"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if _, ok := s.Sample(); ok {
		t.Error("Expected no sample after canceled consume")
	}
}
