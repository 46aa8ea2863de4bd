// Package git serves the definition document from a Git repository.
//
// Repository clones the configured branch into a local directory and pulls
// it on demand. Poller pulls on an interval and calls back when a commit
// touches the document. A document that fails to load is rolled back to
// the last commit that loaded, so a bad push never replaces a working set.
//
//	definitions:
//	  git:
//	    repository: https://github.com/example/conditions.git
//	    branch: main
//	    file: prod/conditions.yaml
//	    poll_interval: 30s
//	    auth:
//	      type: token
//	      token: ${GITHUB_TOKEN}
package git
