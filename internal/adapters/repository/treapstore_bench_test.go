package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
)

func benchEntries(n int) []Entry {
	rng := rand.New(rand.NewSource(42))
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{PlayerID: fmt.Sprintf("player-%06d", i), Rating: 50 + rng.Intn(48)}
	}
	return out
}

func BenchmarkTreapStore_ReplaceRoster(b *testing.B) {
	for _, size := range []int{25, 500, 10_000} {
		b.Run(fmt.Sprintf("players=%d", size), func(b *testing.B) {
			ctx := context.Background()
			store := NewTreapStore(ctx)
			defer store.Close()
			entries := benchEntries(size)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = store.ReplaceRoster(ctx, "bench", entries)
			}
		})
	}
}

func BenchmarkTreapStore_TopN(b *testing.B) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()
	_ = store.ReplaceRoster(ctx, "bench", benchEntries(10_000))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.TopN(ctx, "bench", 50)
	}
}

func BenchmarkTreapStore_Rank(b *testing.B) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()
	_ = store.ReplaceRoster(ctx, "bench", benchEntries(10_000))

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = store.Rank(ctx, "bench", fmt.Sprintf("player-%06d", i%10_000))
			i++
		}
	})
}
