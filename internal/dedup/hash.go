package dedup

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
)

// ContentHash computes a stable hash over msg's flat decoded fields: the
// shared envelope (msg_type, timestamps, vehicle) plus whatever scalar
// fields Content carries. Content is assumed flat, matching the
// deduplicator's placement ahead of any enrichment stage that would
// introduce nested structures.
func ContentHash(msg *eke.Msg) uint64 {
	var pairs []string
	pairs = append(pairs,
		kv("msg_type", msg.MsgType),
		kv("msg_version", msg.MsgVersion),
		kv("ntp_time_valid", msg.NtpTimeValid),
		kv("eke_timestamp", msg.EkeTimestamp.UnixNano()),
		kv("ntp_timestamp", msg.NtpTimestamp.UnixNano()),
		kv("vehicle", msg.Vehicle),
	)
	pairs = append(pairs, flatten("content", msg.Content)...)

	sort.Strings(pairs)
	return xxhash.Sum64String(strings.Join(pairs, "\x1f"))
}

func kv(name string, v any) string {
	return fmt.Sprintf("%s=%v", name, v)
}

// flatten walks an exported-field struct (or pointer to one) one level
// deep, producing "prefix.field=value" pairs. Arrays are rendered via
// their default %v formatting rather than descended into.
func flatten(prefix string, v any) []string {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return []string{kv(prefix, v)}
	}
	rt := rv.Type()
	out := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		out = append(out, kv(prefix+"."+f.Name, rv.Field(i).Interface()))
	}
	return out
}
