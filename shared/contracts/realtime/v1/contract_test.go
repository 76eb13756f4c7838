package v1

import (
	"errors"
	"testing"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
		want    string
	}{
		{name: "authenticate", raw: `{"type":"authenticate","userId":42}`, want: TypeAuthenticate},
		{name: "unknown type decodes", raw: `{"type":"subscribe"}`, want: "subscribe"},
		{name: "not json", raw: `{nope`, wantErr: ErrBadJSON},
		{name: "empty object", raw: `{}`, wantErr: ErrMissingType},
		{name: "blank type", raw: `{"type":"  "}`, wantErr: ErrMissingType},
		{name: "numeric type", raw: `{"type":7}`, wantErr: ErrMissingType},
		{name: "array", raw: `[1,2]`, wantErr: ErrBadJSON},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := DecodeInbound([]byte(tc.raw))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err=%v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeInbound: %v", err)
			}
			if f.Type != tc.want {
				t.Fatalf("type=%q, want %q", f.Type, tc.want)
			}
		})
	}
}

func TestInboundFrame_SubjectID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
		want    int64
	}{
		{name: "number", raw: `{"type":"authenticate","userId":42}`, want: 42},
		{name: "zero", raw: `{"type":"authenticate","userId":0}`, want: 0},
		{name: "missing", raw: `{"type":"authenticate"}`, wantErr: ErrMissingUserID},
		{name: "null", raw: `{"type":"authenticate","userId":null}`, wantErr: ErrMissingUserID},
		{name: "string", raw: `{"type":"authenticate","userId":"42"}`, wantErr: ErrInvalidUserID},
		{name: "fractional", raw: `{"type":"authenticate","userId":4.2}`, wantErr: ErrInvalidUserID},
		{name: "object", raw: `{"type":"authenticate","userId":{"id":1}}`, wantErr: ErrInvalidUserID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := DecodeInbound([]byte(tc.raw))
			if err != nil {
				t.Fatalf("DecodeInbound: %v", err)
			}
			id, err := f.SubjectID()
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err=%v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SubjectID: %v", err)
			}
			if id != tc.want {
				t.Fatalf("id=%d, want %d", id, tc.want)
			}
		})
	}
}
