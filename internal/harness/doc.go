// Package harness runs ddb scenarios as executable contract tests.
//
// A scenario declares blueprints and a list of steps against a fresh
// database. Each step records one line in a text trace, and the trace is
// compared against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	blueprints:
//	  - name: profile
//	    kind: keyvalue
//	    schema: 'string | { name: string }'
//	    access: { type: public }
//	steps:
//	  - create: profile
//	    as: p
//	  - put: { store: p, key: k, value: v }
//	  - get: { store: p, key: k }
//	    expect: v
//	  - reopen: true
//	  - put: { store: p, key: k, value: 42 }
//	    expect_error: SCHEMA_VALIDATION
//
// Blueprints use the same fields as the config file.
//
// # Steps
//
//   - create: creates a store from a blueprint, named by "as" (default: the blueprint name)
//   - open: opens a store by alias or identifier with a blueprint
//   - put, get, delete: keyvalue and docstore access by key
//   - add: appends to a feed or event log
//   - entries: counts the entries of a store
//   - reopen: stops the manager and starts a new one over the same database
//
// Read steps check "expect" (the value, or the entry count) or
// "expect_missing". Any step may set "expect_error" to an error code.
//
// # Deterministic Testing
//
// Every scenario runs with a fixed identity and sequential store ids, so
// the same scenario always produces the same store paths and trace.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/profile.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
