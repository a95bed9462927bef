package fstrm_test

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fstrm-protocol/fstrm-go/internal/streamtest"
	"github.com/fstrm-protocol/fstrm-go/pkg/control"
	"github.com/fstrm-protocol/fstrm-go/pkg/frame"
	"github.com/fstrm-protocol/fstrm-go/pkg/fstrm"
)

func TestEncoderWritesDecodableStream(t *testing.T) {
	var buf bytes.Buffer
	enc, err := fstrm.NewEncoder(&buf, []byte(dnstapType))
	require.NoError(t, err)

	require.NoError(t, enc.Write([]byte("one")))
	require.NoError(t, enc.Write([]byte("two")))
	require.NoError(t, enc.Close())
	assert.Equal(t, uint64(2), enc.Frames())

	want := streamtest.NewBuilder().Start(dnstapType).Data("one", "two").Stop().Bytes()
	assert.Equal(t, want, buf.Bytes())

	sess := newSession(t, fstrm.NewReaderSource(&buf), nil, uniConfig(dnstapType))
	res := streamtest.Drain(sess)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"one", "two"}, payloadStrings(res.Payloads))

	ct, ok := sess.ContentType()
	require.True(t, ok)
	assert.Equal(t, dnstapType, string(ct))
}

func TestEncoderWithoutContentType(t *testing.T) {
	var buf bytes.Buffer
	enc, err := fstrm.NewEncoder(&buf, nil)
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	assert.Equal(t, streamtest.NewBuilder().Start().Stop().Bytes(), buf.Bytes())
}

func TestEncoderRejects(t *testing.T) {
	_, err := fstrm.NewEncoder(&bytes.Buffer{}, bytes.Repeat([]byte("x"), control.MaxContentTypeLength+1))
	require.ErrorIs(t, err, control.ErrContentTypeTooLong)

	enc, err := fstrm.NewEncoder(&bytes.Buffer{}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, enc.Write(nil), frame.ErrEmptyDataFrame)

	require.NoError(t, enc.Close())
	require.NoError(t, enc.Close())
	assert.ErrorIs(t, enc.Write([]byte("late")), fstrm.ErrEncoderClosed)
	assert.ErrorIs(t, enc.Flush(), fstrm.ErrEncoderClosed)
}

func TestEncoderConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	enc, err := fstrm.NewEncoder(&buf, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, enc.Write([]byte(fmt.Sprintf("g%d-%d", g, i))))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, enc.Close())

	res := streamtest.Drain(newSession(t, fstrm.NewReaderSource(&buf), nil, uniConfig()))
	require.NoError(t, res.Err)
	assert.Len(t, res.Payloads, 100)
}
