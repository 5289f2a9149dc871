// Package planner builds the dependency-ordered execution plan for a set of
// transform objects: an order in which every transform's declared input
// kinds are satisfied by the time it runs. Grounded verbatim on
// original_source/fashion/runway.py's Runway.plan().
package planner

import "sort"

// Object is the minimal shape the planner needs from a transform object.
type Object struct {
	Name        string
	InputKinds  []string
	OutputKinds []string
}

// Result is the result of planning a set of objects.
type Result struct {
	// Order is the execution order: object names in an order where every
	// name's InputKinds are satisfied by names earlier in Order (or by
	// leaf inputs nothing in this plan produces).
	Order []string
	// Valid is false if a dependency cycle stalled the worklist before
	// every object was scheduled; Order then contains everything that
	// could still be ordered, ready to execute as a best-effort partial
	// build (spec's CycleDetected policy: mark invalid, execute what is
	// ordered, log).
	Valid bool
	// LeafInputs are kinds consumed but produced by nothing in this set —
	// expected to already exist in the model store (e.g. portfolio/segment
	// snapshots) before this plan executes.
	LeafInputs []string
}

// Plan computes the execution order for objects using the "all producers
// scheduled before a kind becomes available" worklist algorithm: a batch of
// objects becomes ready once every kind in its InputKinds is either a leaf
// input or has had every one of its producing objects already scheduled.
// Ties within a batch are broken lexicographically by object name.
func Plan(objects []Object) Result {
	xfInputs := make(map[string]map[string]bool, len(objects))
	xfOutputs := make(map[string]map[string]bool, len(objects))
	names := make([]string, 0, len(objects))

	allOutputs := make(map[string]bool)
	allInputs := make(map[string]bool)

	for _, o := range objects {
		names = append(names, o.Name)
		xfInputs[o.Name] = toSet(o.InputKinds)
		xfOutputs[o.Name] = toSet(o.OutputKinds)
		for k := range xfInputs[o.Name] {
			allInputs[k] = true
		}
		for k := range xfOutputs[o.Name] {
			allOutputs[k] = true
		}
	}

	leafInputs := make(map[string]bool)
	for k := range allInputs {
		if !allOutputs[k] {
			leafInputs[k] = true
		}
	}

	xfByOutput := make(map[string]map[string]bool)
	for name, outKinds := range xfOutputs {
		for k := range outKinds {
			if xfByOutput[k] == nil {
				xfByOutput[k] = make(map[string]bool)
			}
			xfByOutput[k][name] = true
		}
	}

	availInp := make(map[string]bool, len(leafInputs))
	for k := range leafInputs {
		availInp[k] = true
	}
	availXforms := make(map[string]bool, len(names))
	for _, n := range names {
		availXforms[n] = true
	}

	var execList []string
	for len(availXforms) > 0 {
		var ready []string
		for name := range availXforms {
			if isSubset(xfInputs[name], availInp) {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			break
		}
		sort.Strings(ready)
		for _, name := range ready {
			delete(availXforms, name)
		}
		execList = append(execList, ready...)

		readyOutputs := make(map[string]bool)
		for _, name := range ready {
			for k := range xfOutputs[name] {
				readyOutputs[k] = true
			}
		}
		for outp := range readyOutputs {
			stillProducing := false
			for producer := range xfByOutput[outp] {
				if availXforms[producer] {
					stillProducing = true
					break
				}
			}
			if !stillProducing {
				availInp[outp] = true
			}
		}
	}

	plan := Result{Order: execList, Valid: len(availXforms) == 0}
	plan.LeafInputs = sortedKeys(leafInputs)
	return plan
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, i := range items {
		s[i] = true
	}
	return s
}

func isSubset(sub, super map[string]bool) bool {
	for k := range sub {
		if !super[k] {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
