package main

import (
	circuit "github.com/kysee/zk-knights/circuits"
)

func main() {
	// Read the verifying key from file (to ensure consistency with proving key)
	vk, err := circuit.ReadVerifyingKey("../../.build/" + circuit.VKFile)
	if err != nil {
		panic(err)
	}

	if err := circuit.ExportSolidity(vk, "contracts/KnightsVerifier.sol"); err != nil {
		panic(err)
	}

	println("✅ Solidity verifier generated: contracts/KnightsVerifier.sol")
}
