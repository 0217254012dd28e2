// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mapping

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/svsproto/svs/pkg/netsvs"
	"github.com/svsproto/svs/pkg/svsname"
)

// QueryLifetime is the interest lifetime used for mapping queries; a
// few round trips' worth is plenty since the producer answers from its
// own mapping store with no further fan-out.
const QueryLifetime = 2 * time.Second

// QueryName builds the query interest name for (nid, sync_prefix)'s
// [low, high] range ("<nid>/<sync_prefix>/MAPPING/<low>/<high>").
func QueryName(nid, syncPrefix svsname.Name, low, high uint64) svsname.Name {
	return nid.Append(syncPrefix.Components()...).
		AppendString("MAPPING", strconv.FormatUint(low, 10), strconv.FormatUint(high, 10))
}

// ParseQueryName extracts (low, high) from a query interest name whose
// last three components are MAPPING/<low>/<high>,
// or ok=false if the name is not a well-formed query.
func ParseQueryName(name svsname.Name) (low, high uint64, ok bool) {
	n := name.Len()
	if n < 3 {
		return 0, 0, false
	}
	if string(name.At(n-3)) != "MAPPING" {
		return 0, 0, false
	}
	lo, err := strconv.ParseUint(string(name.At(n-2)), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	hi, err := strconv.ParseUint(string(name.At(n-1)), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

// RegisterQueryHandler installs a Face handler on prefix that answers
// mapping queries out of store: a query for [low, high] on this node's
// own entries is satisfied by every entry the store actually has in
// that range, walked as a contiguous prefix starting at low. A
// producer missing an entry in the range answers with the contiguous
// prefix it does have.
func RegisterQueryHandler(face netsvs.Face, prefix, localID svsname.Name, store *Store) (netsvs.CancelFunc, error) {
	return face.RegisterPrefix(prefix, func(ctx context.Context, i netsvs.Interest, reply func(netsvs.Data) error) {
		low, high, ok := ParseQueryName(i.Name)
		if !ok {
			return
		}
		entries := store.ContiguousPrefix(localID, low, high)
		if len(entries) == 0 {
			return
		}
		_ = reply(netsvs.Data{
			Name:    i.Name,
			Content: Encode(localID, entries),
		})
	})
}

// Query issues one bounded mapping query for producer nid's [low, high]
// range (capped to QueryCap entries by the caller) and invokes onReply
// with whatever prefix of that range the producer actually answered,
// or onFail if the query nacks, times out, or the reply is malformed.
func Query(ctx context.Context, face netsvs.Face, syncPrefix, nid svsname.Name, low, high uint64, onReply func([]Entry), onFail func(error)) {
	name := QueryName(nid, syncPrefix, low, high)
	_, err := face.Express(ctx, netsvs.Interest{
		Name:     name,
		Lifetime: QueryLifetime,
	}, func(d netsvs.Data) {
		_, entries, err := Decode(d.Content)
		if err != nil {
			if onFail != nil {
				onFail(err)
			}
			return
		}
		if onReply != nil {
			onReply(entries)
		}
	}, func(err error) {
		if onFail != nil {
			onFail(err)
		}
	}, func() {
		if onFail != nil {
			onFail(fmt.Errorf("mapping query timed out for %s", name))
		}
	})
	if err != nil && onFail != nil {
		onFail(err)
	}
}

// ChainedQuery issues successive Query calls of at most QueryCap
// entries each to cover [low, high], calling onReply as each window's
// entries arrive and stopping early if a window comes back short or
// fails. Requesters cap a single query to QueryCap entries and chain
// queries to cover larger ranges.
func ChainedQuery(ctx context.Context, face netsvs.Face, syncPrefix, nid svsname.Name, low, high uint64, onReply func([]Entry), onFail func(error)) {
	for cur := low; cur <= high; {
		winHigh := cur + QueryCap - 1
		if winHigh > high {
			winHigh = high
		}
		done := make(chan struct{})
		var got []Entry
		var failErr error
		Query(ctx, face, syncPrefix, nid, cur, winHigh, func(entries []Entry) {
			got = entries
			close(done)
		}, func(err error) {
			failErr = err
			close(done)
		})
		<-done

		if failErr != nil {
			if onFail != nil {
				onFail(failErr)
			}
			return
		}
		if onReply != nil {
			onReply(got)
		}
		if uint64(len(got)) < winHigh-cur+1 {
			return // short reply: producer has nothing more contiguous; stop chaining
		}
		cur = winHigh + 1
	}
}
