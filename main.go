package main

import "github.com/savannahpay/ms-go-payment-gateway/cmd"

func main() {
	cmd.Execute()
}
