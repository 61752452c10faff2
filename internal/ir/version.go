package ir

// EngineVersion identifies the evaluator build that produced a mutation
// record. Bumped on behavioral changes to the write path.
const EngineVersion = "0.1.0"

// IRVersion identifies the schema of the IR types themselves.
const IRVersion = "1"
