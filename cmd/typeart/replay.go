package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/runtime"
	"github.com/wippyai/typeart-runtime/scope"
	"github.com/wippyai/typeart-runtime/tracker"
)

// ReplayCmd runs a trace of allocation events against a catalog.
//
// A trace has one event per line; blank lines and lines starting with # are
// skipped. Numbers accept 0x prefixes.
//
//	thread <n>                       switch execution context
//	push                             open a scope
//	pop                              close the innermost scope
//	record <addr> <type> <count> [heap|stack|global]
//	release <addr>
//	resolve <addr>
var ReplayCmd = &cobra.Command{
	Use:   "replay <catalog> <trace>",
	Short: "Run an allocation trace against a catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer rt.Close()

		fh, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer fh.Close()

		if err := replay(rt, fh, cmd.OutOrStdout()); err != nil {
			return err
		}
		for _, f := range rt.Stats().Fields() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", f.Key, fieldValue(f))
		}
		return nil
	},
}

func fieldValue(f zap.Field) string {
	if f.String != "" {
		return f.String
	}
	return strconv.FormatInt(f.Integer, 10)
}

type replayer struct {
	rt      *runtime.Runtime
	out     io.Writer
	threads map[uint64]*replayThread
	current *replayThread
}

type replayThread struct {
	thread *runtime.Thread
	scopes []scope.Handle
}

func replay(rt *runtime.Runtime, r io.Reader, out io.Writer) error {
	rp := &replayer{rt: rt, out: out, threads: make(map[uint64]*replayThread)}
	rp.switchTo(0)
	defer func() {
		for _, th := range rp.threads {
			th.thread.Close()
		}
	}()

	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := rp.step(fields); err != nil {
			return errors.New(errors.PhaseReplay, errors.KindMalformed).
				Value(line).
				Cause(err).
				Detail("trace line %d: %v", line, err).
				Build()
		}
	}
	return sc.Err()
}

func (rp *replayer) switchTo(n uint64) {
	th, ok := rp.threads[n]
	if !ok {
		th = &replayThread{thread: rp.rt.NewThread()}
		rp.threads[n] = th
	}
	rp.current = th
}

func (rp *replayer) step(fields []string) error {
	op, args := fields[0], fields[1:]
	nums := func(n int) ([]uint64, error) {
		if len(args) < n {
			return nil, fmt.Errorf("%s needs %d arguments", op, n)
		}
		out := make([]uint64, n)
		for i := range out {
			v, err := strconv.ParseUint(args[i], 0, 64)
			if err != nil {
				return nil, fmt.Errorf("%s argument %d: %w", op, i+1, err)
			}
			out[i] = v
		}
		return out, nil
	}

	th := rp.current
	switch op {
	case "thread":
		v, err := nums(1)
		if err != nil {
			return err
		}
		rp.switchTo(v[0])

	case "push":
		th.scopes = append(th.scopes, th.thread.PushScope())

	case "pop":
		if len(th.scopes) == 0 {
			return fmt.Errorf("pop without open scope")
		}
		h := th.scopes[len(th.scopes)-1]
		th.scopes = th.scopes[:len(th.scopes)-1]
		return th.thread.PopScope(h)

	case "record":
		v, err := nums(3)
		if err != nil {
			return err
		}
		kind := tracker.KindHeap
		if len(args) > 3 {
			k, ok := tracker.ParseKind(args[3])
			if !ok {
				return fmt.Errorf("unknown allocation kind %q", args[3])
			}
			kind = k
		}
		typ, err := typeID(v[1])
		if err != nil {
			return err
		}
		th.thread.Record(tracker.Allocation{
			Base:  uintptr(v[0]),
			Type:  typ,
			Count: v[2],
			Kind:  kind,
		})

	case "release":
		v, err := nums(1)
		if err != nil {
			return err
		}
		if err := th.thread.Release(uintptr(v[0])); err != nil {
			fmt.Fprintf(rp.out, "release %#x: %v\n", v[0], err)
		}

	case "resolve":
		v, err := nums(1)
		if err != nil {
			return err
		}
		res, err := rp.rt.Resolve(uintptr(v[0]))
		if err != nil {
			fmt.Fprintf(rp.out, "resolve %#x: %v\n", v[0], err)
			return nil
		}
		cat := rp.rt.Database().Snapshot()
		fmt.Fprintf(rp.out, "resolve %#x: %s %s\n", v[0], cat.Name(res.Type), strings.Join(res.Path, "."))

	default:
		return fmt.Errorf("unknown event %q", op)
	}
	return nil
}

// typeID keeps negative ids written as 32-bit values, such as 0xffffffff.
func typeID(v uint64) (ids.TypeID, error) {
	if v > math.MaxUint32 {
		return ids.InvalidType, fmt.Errorf("type id %#x does not fit in 32 bits", v)
	}
	return ids.TypeID(int32(uint32(v))), nil
}
