package appointments

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	getErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[*params.Bucket+"/"+*params.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, params)
	f.objects[*params.Bucket+"/"+*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Blob_MissingObjectReadsEmpty(t *testing.T) {
	blob := NewS3Blob(newFakeS3(), "surgery", "")

	data, err := blob.Read(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, "appointments/healthy_life_appointments.json", blob.key)
}

func TestS3Blob_StoreRoundTrip(t *testing.T) {
	fake := newFakeS3()
	store := NewBlobStore(NewS3Blob(fake, "surgery", "clinic"), nil)
	ctx := context.Background()

	appt := Appointment{ID: "a1", GPID: "gp2", PatientName: "Bo", Date: "2025-01-07", StartTime: "10:20", Type: KindTelephone}
	require.NoError(t, store.Create(ctx, appt))

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "application/json", *fake.puts[0].ContentType)
	assert.Contains(t, fake.objects, "surgery/appointments/clinic.json")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Appointment{appt}, list)
}

func TestS3Blob_ErrorsAreWrapped(t *testing.T) {
	fake := newFakeS3()
	fake.getErr = errors.New("access denied")
	store := NewBlobStore(NewS3Blob(fake, "surgery", ""), nil)

	_, err := store.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Contains(t, err.Error(), "s3 get")
}
