// Package loader discovers, decodes and compiles declarative flow files.
//
// Flow files are YAML (*.krepko.yaml, *.krepko.yml) or CUE (*.krepko.cue)
// documents with the same shape:
//
//	base_url: http://localhost:3000
//	flows:
//	  - name: Authentication
//	    tags: [critical, auth]
//	    steps:
//	      - name: Login
//	        vars: {phone: "+79999999999"}
//	        request:
//	          method: POST
//	          path: /auth
//	          body: {phone: "${phone}"}
//	        expect:
//	          status: 200
//	          body:
//	            token: !string
//	        capture: {token: token}
//	        bearer: "${token}"
//
// In YAML, body patterns use the tags !any, !string, !number, !boolean,
// !array, !object, !arrayOf and !arrayContaining. In CUE they are plain CUE
// types: string, number, bool, _, [...T], with #arrayOf and #contains for the
// array matchers.
//
// A YAML tag inside a flow collection needs a space before the closing
// bracket or comma: [!string ] parses, [!string] does not. The loader
// points this out when the parse fails.
//
// ${name} references are resolved when the step runs, against variables set
// by vars and capture in earlier steps of the same flow. A string that is
// exactly one reference keeps the variable's type.
package loader
