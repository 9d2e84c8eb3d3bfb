// Command tlsn-prover runs the TLSNotary prover gateway.
package main

import "github.com/summitto/tlsn-prover-gateway/cmd/tlsn-prover/cmd"

func main() {
	cmd.Execute()
}
