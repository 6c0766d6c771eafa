/*
Package runner executes render-pass scripts against a vista.Transitioner.

A script is a list of steps, written in YAML or JSON, that play the role of a
renderer: they create detached subtrees, mutate the shadow tree, arm
transitions through the binding attribute and advance a cooperative platform.
Every executed step and every completion event is reported to a Handler.

# Node references

  - "root" or empty: the shadow root of the current pass.
  - "#id": the first node with that id, found by walking the shadow tree.
  - "$name": a node created by an earlier "create" step with "as: name".

# Usage

	script, err := runner.LoadScript("pass.yaml")
	if err != nil {
		log.Fatal(err)
	}

	r := runner.New(runner.WithHandler(runner.NewTextHandler(os.Stdout)))
	report, err := r.Run(ctx, t, doc, script)
*/
package runner
