package memory

import (
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr bool
	}{
		{name: "defaults", mutate: func(_ *Options) {}, wantErr: false},
		{name: "zero max messages", mutate: func(o *Options) { o.MaxMessages = 0 }, wantErr: true},
		{name: "odd max messages", mutate: func(o *Options) { o.MaxMessages = 7 }, wantErr: true},
		{name: "zero context turns", mutate: func(o *Options) { o.ContextTurns = 0 }, wantErr: true},
		{name: "context turns exceed half of max", mutate: func(o *Options) {
			o.MaxMessages = 4
			o.ContextTurns = 3
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)
			errs := o.Validate()
			if tt.wantErr && len(errs) == 0 {
				t.Error("expected validation errors, got none")
			}
			if !tt.wantErr && len(errs) > 0 {
				t.Errorf("expected no validation errors, got %v", errs)
			}
		})
	}
}
