package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/persona-shift/internal/generation"
	"github.com/jonathan/persona-shift/internal/types"
)

// fakeClient is a scripted generation.Client
type fakeClient struct {
	mu sync.Mutex

	refined    *types.RefinedInput
	refineErr  error
	refineNil  bool
	detailsErr map[string]error
	imageErr   map[string]error
	emptyTitle map[string]bool
	imageDelay time.Duration
	onDetails  func(field string)

	calls     []string
	baseSeen  []generation.Image
	contextOf []string
}

func tenFields() []string {
	fields := make([]string, types.TargetPersonaCount)
	for i := range fields {
		fields[i] = fmt.Sprintf("Field %d", i+1)
	}
	return fields
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		refined:    &types.RefinedInput{Professions: tenFields(), Context: "Refined context"},
		detailsErr: map[string]error{},
		imageErr:   map[string]error{},
		emptyTitle: map[string]bool{},
	}
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) Refine(_ context.Context, professions, styleContext string) (*types.RefinedInput, error) {
	f.record("refine:" + professions)
	if f.refineErr != nil {
		return nil, f.refineErr
	}
	if f.refineNil {
		return nil, nil
	}
	return f.refined, nil
}

func (f *fakeClient) GenerateDetails(_ context.Context, field, styleContext string) (*types.PersonaDetails, error) {
	f.record("details:" + field)
	f.mu.Lock()
	f.contextOf = append(f.contextOf, styleContext)
	f.mu.Unlock()
	if f.onDetails != nil {
		f.onDetails(field)
	}
	if err := f.detailsErr[field]; err != nil {
		return nil, err
	}
	title := field + " Lead"
	if f.emptyTitle[field] {
		title = ""
	}
	return &types.PersonaDetails{
		Title:       title,
		Bio:         "Bio for " + field,
		Skills:      []string{"a", "b", "c"},
		Personality: "Calm",
	}, nil
}

func (f *fakeClient) GenerateImage(ctx context.Context, base generation.Image, field, styleContext string) (string, error) {
	f.record("image:" + field)
	f.mu.Lock()
	f.baseSeen = append(f.baseSeen, base)
	f.mu.Unlock()
	if f.imageDelay > 0 {
		select {
		case <-time.After(f.imageDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := f.imageErr[field]; err != nil {
		return "", err
	}
	return "data:image/png;base64,aW1n", nil
}

func baseImage() generation.Image {
	return generation.Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff, 0x01}}
}

// recorder collects events in order
type recorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recorder) callback(e ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t EventType) []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ProgressEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func counterIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestRun_HappyPath(t *testing.T) {
	client := newFakeClient()
	rec := &recorder{}
	run := NewRun(rec.callback)
	ctrl := NewController(client, WithIDGenerator(counterIDs()))

	err := ctrl.Run(context.Background(), RunInput{Professions: "pilot", Context: "noir", BaseImage: baseImage()}, run)
	require.NoError(t, err)

	state := run.State()
	assert.Equal(t, types.PhaseComplete, state.Phase)
	assert.Equal(t, 100, state.Progress)
	assert.Equal(t, 10, state.CompletedCount)
	assert.Equal(t, 10, state.Target)

	personas := run.Personas()
	require.Len(t, personas, 10)
	for i, p := range personas {
		assert.Equal(t, fmt.Sprintf("Field %d", i+1), p.JobField)
		assert.Equal(t, fmt.Sprintf("id-%d", i+1), p.ID)
		assert.NoError(t, p.Validate())
	}

	select {
	case <-run.Done():
	default:
		t.Fatal("done channel not closed")
	}
	assert.NoError(t, run.Err())
	require.NotNil(t, run.Refined())
	assert.Equal(t, "Refined context", run.Refined().Context)
}

func TestRun_CallOrderIsSequential(t *testing.T) {
	client := newFakeClient()
	ctrl := NewController(client)

	require.NoError(t, ctrl.Run(context.Background(), RunInput{Professions: "pilot", BaseImage: baseImage()}, NewRun(nil)))

	require.Len(t, client.calls, 1+2*types.TargetPersonaCount)
	assert.Equal(t, "refine:pilot", client.calls[0])
	for i := 0; i < types.TargetPersonaCount; i++ {
		field := fmt.Sprintf("Field %d", i+1)
		assert.Equal(t, "details:"+field, client.calls[1+2*i])
		assert.Equal(t, "image:"+field, client.calls[2+2*i])
	}
}

func TestRun_UsesRefinedContext(t *testing.T) {
	client := newFakeClient()
	require.NoError(t, NewController(client).Run(context.Background(), RunInput{Context: "raw", BaseImage: baseImage()}, NewRun(nil)))

	for _, c := range client.contextOf {
		assert.Equal(t, "Refined context", c)
	}
}

func TestRun_BaseImageUnchanged(t *testing.T) {
	client := newFakeClient()
	base := baseImage()
	original := append([]byte(nil), base.Data...)

	require.NoError(t, NewController(client).Run(context.Background(), RunInput{BaseImage: base}, NewRun(nil)))

	assert.Equal(t, original, base.Data)
	require.Len(t, client.baseSeen, types.TargetPersonaCount)
	for _, seen := range client.baseSeen {
		assert.Equal(t, original, seen.Data)
		assert.Equal(t, "image/jpeg", seen.MIMEType)
	}
}

func TestRun_ProgressEvents(t *testing.T) {
	rec := &recorder{}
	run := NewRun(rec.callback)
	require.NoError(t, NewController(newFakeClient()).Run(context.Background(), RunInput{BaseImage: baseImage()}, run))

	progress := rec.ofType(EventProgress)
	require.Len(t, progress, types.TargetPersonaCount)
	for i, e := range progress {
		assert.Equal(t, i*10, e.State.Progress, "progress before item %d", i)
		assert.Equal(t, i, e.State.CompletedCount)
		assert.Equal(t, fmt.Sprintf("Crafting your \"Field %d\" identity... (%d/10)", i+1, i+1), e.State.Label)
	}

	personaEvents := rec.ofType(EventPersona)
	require.Len(t, personaEvents, types.TargetPersonaCount)
	for i, e := range personaEvents {
		require.NotNil(t, e.Persona)
		assert.Equal(t, i+1, e.State.CompletedCount)
	}

	first := rec.ofType(EventFirstResult)
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].State.CompletedCount)

	complete := rec.ofType(EventComplete)
	require.Len(t, complete, 1)
	assert.Equal(t, 100, complete[0].State.Progress)

	last := 0
	for _, e := range rec.events {
		assert.GreaterOrEqual(t, e.State.Progress, last)
		last = e.State.Progress
		if e.Type != EventComplete {
			assert.Less(t, e.State.Progress, 100)
		}
	}
}

func TestRun_PhaseSequence(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, NewController(newFakeClient()).Run(context.Background(), RunInput{BaseImage: baseImage()}, NewRun(rec.callback)))

	phases := rec.ofType(EventPhase)
	require.Len(t, phases, 2)
	assert.Equal(t, types.PhaseRefining, phases[0].State.Phase)
	assert.Equal(t, "Refining your input with AI...", phases[0].State.Label)
	assert.Equal(t, types.PhaseGenerating, phases[1].State.Phase)
	assert.Equal(t, 0, phases[1].State.CompletedCount)
	assert.Equal(t, 10, phases[1].State.Target)
}

func TestRun_FailureMidway(t *testing.T) {
	client := newFakeClient()
	client.imageErr["Field 3"] = &generation.EmptyResultError{Field: "Field 3"}
	rec := &recorder{}
	run := NewRun(rec.callback)

	err := NewController(client).Run(context.Background(), RunInput{BaseImage: baseImage()}, run)
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, generation.OpGenerateImage, stepErr.Step)
	assert.Equal(t, 2, stepErr.Index)
	assert.ErrorIs(t, err, generation.ErrNoImageReturned)
	assert.Equal(t, KindEmptyResult, ErrorKind(err))

	state := run.State()
	assert.Equal(t, types.PhaseFailed, state.Phase)
	assert.Equal(t, FailureMessage, state.Label)
	assert.Equal(t, 2, state.CompletedCount)
	assert.Less(t, state.Progress, 100)

	personas := run.Personas()
	require.Len(t, personas, 2)
	assert.Equal(t, "Field 1", personas[0].JobField)
	assert.Equal(t, "Field 2", personas[1].JobField)

	failed := rec.ofType(EventFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, FailureMessage, failed[0].Message)
	assert.Empty(t, rec.ofType(EventComplete))
	assert.Equal(t, err, run.Err())

	for _, call := range client.calls {
		assert.NotEqual(t, "details:Field 4", call, "no work after the failing item")
	}
}

func TestRun_DetailsServiceErrorMidway(t *testing.T) {
	client := newFakeClient()
	client.detailsErr["Field 3"] = &generation.ServiceError{
		Op:      generation.OpGenerateDetails,
		Message: "connection reset",
		Cause:   errors.New("transport failure"),
	}
	run := NewRun(nil)

	err := NewController(client).Run(context.Background(), RunInput{BaseImage: baseImage()}, run)
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, generation.OpGenerateDetails, stepErr.Step)
	assert.Equal(t, 2, stepErr.Index)
	assert.Equal(t, KindService, ErrorKind(err))

	assert.Equal(t, types.PhaseFailed, run.State().Phase)
	require.Len(t, run.Personas(), 2)
	assert.Contains(t, client.calls, "details:Field 3")
	assert.NotContains(t, client.calls, "image:Field 3")
	assert.NotContains(t, client.calls, "details:Field 4")
}

func TestRun_NilRefinementIsSchemaError(t *testing.T) {
	client := newFakeClient()
	client.refineNil = true
	run := NewRun(nil)

	err := NewController(client).Run(context.Background(), RunInput{BaseImage: baseImage()}, run)
	require.Error(t, err)

	var schemaErr *generation.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, KindSchema, ErrorKind(err))
	assert.Equal(t, types.PhaseFailed, run.State().Phase)
	assert.Empty(t, run.Personas())
}

func TestItemLabel_KeepsFieldVerbatim(t *testing.T) {
	assert.Equal(t, `Crafting your "Rock "n" Roll\Star" identity... (2/10)`, itemLabel(`Rock "n" Roll\Star`, 1, 10))
}

func TestRun_MalformedRefinement(t *testing.T) {
	for _, n := range []int{0, 9, 11} {
		t.Run(fmt.Sprintf("%d professions", n), func(t *testing.T) {
			client := newFakeClient()
			client.refined = &types.RefinedInput{Professions: tenFields()[:min(n, 10)]}
			for len(client.refined.Professions) < n {
				client.refined.Professions = append(client.refined.Professions, "Extra")
			}
			run := NewRun(nil)

			err := NewController(client).Run(context.Background(), RunInput{BaseImage: baseImage()}, run)

			var malformed *MalformedRefinementError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, n, malformed.Got)
			assert.Equal(t, 10, malformed.Want)
			assert.Equal(t, KindMalformedRefinement, ErrorKind(err))
			assert.Equal(t, types.PhaseFailed, run.State().Phase)
			assert.Empty(t, run.Personas())
			assert.Len(t, client.calls, 1)
		})
	}
}

func TestRun_RefineServiceError(t *testing.T) {
	client := newFakeClient()
	client.refineErr = &generation.ServiceError{Op: generation.OpRefine, Message: "boom"}
	run := NewRun(nil)

	err := NewController(client).Run(context.Background(), RunInput{BaseImage: baseImage()}, run)
	require.Error(t, err)
	assert.Equal(t, KindService, ErrorKind(err))
	assert.Equal(t, types.PhaseFailed, run.State().Phase)
	assert.Nil(t, run.Refined())
}

func TestRun_IncompletePersonaIsSchemaError(t *testing.T) {
	client := newFakeClient()
	client.emptyTitle["Field 1"] = true
	run := NewRun(nil)

	err := NewController(client).Run(context.Background(), RunInput{BaseImage: baseImage()}, run)
	require.Error(t, err)
	assert.Equal(t, KindSchema, ErrorKind(err))
	assert.Empty(t, run.Personas())
}

func TestRun_MissingBaseImage(t *testing.T) {
	client := newFakeClient()
	run := NewRun(nil)

	err := NewController(client).Run(context.Background(), RunInput{Professions: "pilot"}, run)
	require.Error(t, err)
	assert.Equal(t, types.PhaseFailed, run.State().Phase)
	assert.Empty(t, client.calls)
}

func TestRun_NilRun(t *testing.T) {
	err := NewController(newFakeClient()).Run(context.Background(), RunInput{BaseImage: baseImage()}, nil)
	assert.Error(t, err)
}

func TestRun_Cancellation(t *testing.T) {
	client := newFakeClient()
	ctx, cancel := context.WithCancel(context.Background())
	client.onDetails = func(field string) {
		if field == "Field 2" {
			cancel()
		}
	}
	run := NewRun(nil)

	err := NewController(client).Run(ctx, RunInput{BaseImage: baseImage()}, run)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindCanceled, ErrorKind(err))
	assert.Equal(t, types.PhaseFailed, run.State().Phase)
	assert.Len(t, run.Personas(), 1)
}

func TestRun_CallTimeout(t *testing.T) {
	client := newFakeClient()
	client.imageDelay = time.Second
	run := NewRun(nil)

	err := NewController(client, WithCallTimeout(10*time.Millisecond)).Run(context.Background(), RunInput{BaseImage: baseImage()}, run)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, ErrorKind(err))
	assert.Empty(t, run.Personas())
}

func TestRun_SnapshotIsolation(t *testing.T) {
	run := NewRun(nil)
	require.NoError(t, NewController(newFakeClient()).Run(context.Background(), RunInput{BaseImage: baseImage()}, run))

	personas := run.Personas()
	personas[0].Title = "mutated"
	assert.NotEqual(t, "mutated", run.Personas()[0].Title)

	refined := run.Refined()
	refined.Professions[0] = "mutated"
	assert.NotEqual(t, "mutated", run.Refined().Professions[0])
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"malformed", &MalformedRefinementError{Got: 3, Want: 10}, KindMalformedRefinement},
		{"canceled", fmt.Errorf("x: %w", context.Canceled), KindCanceled},
		{"timeout", context.DeadlineExceeded, KindTimeout},
		{"empty", &generation.EmptyResultError{Field: "x"}, KindEmptyResult},
		{"schema", &generation.SchemaError{Op: "x"}, KindSchema},
		{"service", &generation.ServiceError{Op: "x"}, KindService},
		{"wrapped service", &StepError{Step: "x", Cause: &generation.ServiceError{Op: "x"}}, KindService},
		{"other", errors.New("other"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}

func TestStepError_Message(t *testing.T) {
	refine := &StepError{Step: "refine", Index: -1, Cause: errors.New("boom")}
	assert.Equal(t, "refine failed: boom", refine.Error())

	item := &StepError{Step: "generate_image", Index: 2, Field: "Pilot", Cause: errors.New("boom")}
	assert.Equal(t, `generate_image failed for "Pilot" (item 3): boom`, item.Error())
}
