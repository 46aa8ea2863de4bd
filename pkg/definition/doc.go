// Package definition loads condition trees from YAML documents.
//
// A document seeds run state and declares named conditions. Every node is
// exactly one of a composite (all or any) or a predicate leaf:
//
//	state:
//	  role: admin
//	conditions:
//	  - name: can-deploy
//	    description: admins inside the deploy window
//	    root:
//	      all:
//	        - predicate: state.equals
//	          args: {key: role, value: admin}
//	        - predicate: schedule
//	          alias: deploy-window
//	          args: {cron: "0 9 * * 1-5", window: 8h}
//	        - predicate: jsonlogic
//	          async: true
//	          timeout: 200ms
//	          args:
//	            rule: {"<": [{"var": "load"}, 0.8]}
//
// Predicates are created by factories held in a Registry. Factory arguments
// are decoded with mapstructure, so durations may be written as strings.
package definition
