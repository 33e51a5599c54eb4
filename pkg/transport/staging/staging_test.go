// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package staging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/adios-io/adios/pkg/container"
	"github.com/adios-io/adios/pkg/dimtype"
	"github.com/adios-io/adios/pkg/metadata"
)

func TestPoolRunsAllSubmittedJobs(t *testing.T) {
	p := NewPool(1, 4, 20*time.Millisecond)
	defer p.Destroy()

	var mu sync.Mutex
	seen := make(map[int]bool)
	for i := 0; i < 10; i++ {
		i := i
		p.Submit(func(ctx context.Context) error {
			mu.Lock()
			seen[i] = true
			mu.Unlock()
			return nil
		})
	}
	p.Wait()

	if len(seen) != 10 {
		t.Fatalf("got %d jobs run, want 10", len(seen))
	}
}

func TestPoolDestroyCancelsJobContext(t *testing.T) {
	p := NewPool(1, 1, time.Second)
	started := make(chan struct{})
	canceled := make(chan struct{})

	p.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	})

	<-started
	p.Destroy()

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("job context was not canceled by Destroy")
	}
}

func TestRegistryWaitUnblocksAtMaxClient(t *testing.T) {
	r := NewRegistry(2)
	if err := r.Register(Contact{Host: "a", Port: 1, StoneID: 1}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Wait(ctx); err == nil {
		t.Fatalf("expected Wait to time out with only 1 of 2 subscribers registered")
	}

	if err := r.Register(Contact{Host: "b", Port: 2, StoneID: 2}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("Wait after max_client reached: %v", err)
	}
}

func TestRegistryRejectsRegistrationsPastMaxClient(t *testing.T) {
	r := NewRegistry(1)
	if err := r.Register(Contact{Host: "a", Port: 1}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(Contact{Host: "b", Port: 2}); err == nil {
		t.Errorf("expected a registration past max_client to fail")
	}
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs map[string][][]byte
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{msgs: make(map[string][][]byte)}
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[subject] = append(f.msgs[subject], data)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		n += len(m)
	}
	return n
}

func samplePG() container.PG {
	return container.PG{
		Header: container.PGHeader{TimeIndex: 7},
		Vars: []container.VarRecord{
			{Name: "U", Type: dimtype.TypeDouble, Dims: []container.DimRecord{{Local: 10}, {Local: 20}}},
			{Name: "V", Type: dimtype.TypeDouble, Dims: []container.DimRecord{{Local: 10}, {Local: 20}}},
			{Name: "T", Type: dimtype.TypeDouble, Dims: []container.DimRecord{{Local: 10}, {Local: 20}}},
		},
	}
}

func TestSequentialPublishSendsOneMessagePerSubscriber(t *testing.T) {
	pub := newFakePublisher()
	reg := NewRegistry(2)
	reg.Register(Contact{Host: "sub1", StoneID: 1})
	reg.Register(Contact{Host: "sub2", StoneID: 2})

	xport := NewTransport(Config{MaxClient: 2}, pub, reg, "run.bp", 0, 1)
	if err := xport.Publish(samplePG(), false, metadata.ModeWrite); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if pub.count() != 2 {
		t.Fatalf("got %d published messages, want 2 (one per subscriber)", pub.count())
	}
}

func TestParallelPublishSplitsIntoOneChunkPerVariable(t *testing.T) {
	pub := newFakePublisher()
	reg := NewRegistry(2)
	reg.Register(Contact{Host: "sub1", StoneID: 1})
	reg.Register(Contact{Host: "sub2", StoneID: 2})

	xport := NewTransport(Config{MaxClient: 2, NumParallel: 2}, pub, reg, "run.bp", 0, 1)
	defer xport.Close()
	xport.SetCommTotalVars(3)

	if err := xport.Publish(samplePG(), false, metadata.ModeWrite); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// 3 variables * 2 subscribers = 6 messages total.
	if pub.count() != 6 {
		t.Fatalf("got %d published messages, want 6", pub.count())
	}

	for subject, msgs := range pub.msgs {
		for _, raw := range msgs {
			fi, err := UnmarshalFileInfo(raw)
			if err != nil {
				t.Fatalf("UnmarshalFileInfo on subject %s: %v", subject, err)
			}
			if fi.NChunks != 3 {
				t.Errorf("NChunks = %d, want 3 (comm-wide total)", fi.NChunks)
			}
			if len(fi.Vars) != 1 {
				t.Errorf("expected exactly 1 variable per parallel chunk, got %d", len(fi.Vars))
			}
		}
	}
}

func TestReverseDimReordersDimensions(t *testing.T) {
	v := container.VarRecord{
		Name: "U",
		Dims: []container.DimRecord{{Local: 1}, {Local: 2}, {Local: 3}},
	}

	rowMajor := varInfoFromRecord(v, false)
	if rowMajor.Dims[0] != 1 || rowMajor.Dims[2] != 3 {
		t.Errorf("row-major dims = %v, want [1 2 3]", rowMajor.Dims)
	}

	colMajor := varInfoFromRecord(v, true)
	if colMajor.Dims[0] != 3 || colMajor.Dims[2] != 1 {
		t.Errorf("column-major dims = %v, want [3 2 1]", colMajor.Dims)
	}
}
