// Package pipeline runs multi-stage language-model workflows whose stages
// communicate through a write-once, keyed blackboard.
//
// The building blocks compose into a tree:
//
//   - [Stage] produces exactly one value under its output key. [LLMStage] is
//     the generation-backed implementation: it renders the run query and the
//     prior outputs into a prompt, calls the [client.Client], and decodes the
//     answer (optionally against a JSON schema).
//   - [ParallelGroup] runs several stages concurrently against the same
//     snapshot and merges their outputs all-or-nothing.
//   - [SequentialPipeline] runs steps in order and fails fast.
//   - [Router] gates on a classification stage and then runs either a cheap
//     short-circuit stage or the full pipeline.
//
// Steps never mutate shared data. Each one receives an immutable [Snapshot]
// and returns a [Patch]; only the driver commits patches into the run's
// [SharedState], which rejects a second write to the same key.
//
// Per-run collaborators (event feed, logger, metrics recorder, chosen branch)
// live on an [Execution], created once per run:
//
//	run := pipeline.NewRunContext("Shri Example Kumar")
//	events := make(chan pipeline.Event, pipeline.DefaultEventBuffer)
//	exec := pipeline.NewExecution(run, pipeline.WithEvents(events))
//
//	go drain(events)
//	if err := router.Run(ctx, exec, run.State); err != nil {
//	    return err
//	}
//	fmt.Println(exec.Branch(), run.State.Keys())
package pipeline
