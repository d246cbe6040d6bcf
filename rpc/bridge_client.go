package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rwabridge/bridgenode/bridge"
	"github.com/rwabridge/bridgenode/rpc/types"
)

type BridgeClientInterface interface {
	InitiateBridge(req types.InitiateBridgeRequest) (*bridge.TransferIntent, error)
	GetTransfer(transferID common.Hash) (*bridge.TransferIntent, error)
	RelayApproveAndMint(req types.RelayRequest) (*types.AttestationResponse, error)
	GetApprovalState(transferID common.Hash) (*types.ApprovalStateResponse, error)
	GetMinted(assetID *big.Int) (json.RawMessage, error)
}

func (c *Client) InitiateBridge(req types.InitiateBridgeRequest) (*bridge.TransferIntent, error) {
	response, err := rpc.JSONRPCCall(c.url, "bridge_initiateBridge", req)
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("%v %v", response.Error.Code, response.Error.Message)
	}
	var result bridge.TransferIntent
	return &result, json.Unmarshal(response.Result, &result)
}

func (c *Client) GetTransfer(transferID common.Hash) (*bridge.TransferIntent, error) {
	response, err := rpc.JSONRPCCall(c.url, "bridge_getTransfer", transferID)
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("%v %v", response.Error.Code, response.Error.Message)
	}
	var result bridge.TransferIntent
	return &result, json.Unmarshal(response.Result, &result)
}

func (c *Client) RelayApproveAndMint(req types.RelayRequest) (*types.AttestationResponse, error) {
	response, err := rpc.JSONRPCCall(c.url, "bridge_relayApproveAndMint", req)
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("%v %v", response.Error.Code, response.Error.Message)
	}
	var result types.AttestationResponse
	return &result, json.Unmarshal(response.Result, &result)
}

func (c *Client) GetApprovalState(transferID common.Hash) (*types.ApprovalStateResponse, error) {
	response, err := rpc.JSONRPCCall(c.url, "bridge_getApprovalState", transferID)
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("%v %v", response.Error.Code, response.Error.Message)
	}
	var result types.ApprovalStateResponse
	return &result, json.Unmarshal(response.Result, &result)
}

func (c *Client) GetMinted(assetID *big.Int) (json.RawMessage, error) {
	response, err := rpc.JSONRPCCall(c.url, "bridge_getMinted", assetID)
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("%v %v", response.Error.Code, response.Error.Message)
	}
	return response.Result, nil
}
