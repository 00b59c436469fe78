package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastq/internal/model"
)

type fakeShower struct {
	got model.Spec
	err error
}

func (f *fakeShower) Show(_ context.Context, spec model.Spec) (string, error) {
	f.got = spec
	return "7", f.err
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    model.Spec
		wantErr error
	}{
		{
			name:  "full payload",
			input: `{"event":"show-toast","payload":{"title":"Saved","description":"ok","variant":"success","duration":0,"action":{"key":"undo","label":"Undo"}}}`,
			want: model.Spec{
				Title:       "Saved",
				Description: "ok",
				Variant:     model.VariantSuccess,
				Duration:    model.Ptr(0),
				Action:      &model.Action{Key: "undo", Label: "Undo"},
			},
		},
		{
			name:  "empty payload",
			input: `{"event":"show-toast"}`,
			want:  model.Spec{},
		},
		{
			name:    "unknown event",
			input:   `{"event":"hide-toast","payload":{}}`,
			wantErr: ErrUnknownEvent,
		},
		{
			name:    "not json",
			input:   `show-toast`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "payload wrong type",
			input:   `{"event":"show-toast","payload":{"title":5}}`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:  "variant alias",
			input: `{"event":"show-toast","payload":{"title":"Oops","variant":"error"}}`,
			want:  model.Spec{Title: "Oops", Variant: model.VariantDestructive},
		},
		{
			name:    "invalid variant",
			input:   `{"event":"show-toast","payload":{"variant":"loud"}}`,
			wantErr: model.ErrInvalidVariant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvalidVariantIsInvalidPayload(t *testing.T) {
	_, err := Decode([]byte(`{"event":"show-toast","payload":{"variant":"loud"}}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestNew(t *testing.T) {
	env, err := New(model.Spec{Title: "hi", Variant: model.VariantInfo})
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"show-toast","payload":{"title":"hi","variant":"info"}}`, string(data))

	spec, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "hi", spec.Title)
}

func TestDispatch(t *testing.T) {
	s := &fakeShower{}
	id, err := Dispatch(context.Background(), s, []byte(`{"event":"show-toast","payload":{"title":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, "7", id)
	assert.Equal(t, "x", s.got.Title)

	_, err = Dispatch(context.Background(), s, []byte(`{"event":"nope"}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)

	s.err = errors.New("closed")
	_, err = Dispatch(context.Background(), s, []byte(`{"event":"show-toast"}`))
	assert.EqualError(t, err, "closed")
}
