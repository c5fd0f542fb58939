package ledger

import "github.com/BurstFinance/burst/core/amount"

// AssetRef identifies the asset a stake entry is denominated in: either
// the native ledger asset or an external fungible asset held through a
// custody collaborator.
type AssetRef struct {
	// ID is the external asset identifier; empty for the native asset.
	ID string `json:"id,omitempty"`
}

// NativeAsset returns the AssetRef for the ledger's own asset.
func NativeAsset() AssetRef { return AssetRef{} }

// ExternalAsset returns the AssetRef for an externally custodied asset.
func ExternalAsset(id string) AssetRef { return AssetRef{ID: id} }

// IsNative reports whether the reference names the native ledger asset.
func (a AssetRef) IsNative() bool { return a.ID == "" }

func (a AssetRef) String() string {
	if a.IsNative() {
		return "native"
	}
	return a.ID
}

// Custodian moves units of one external asset into and out of the
// engine's custody. Both methods either fully succeed or fully fail; the
// engine never mutates ledger state around a failed transfer.
type Custodian interface {
	// TransferFrom pulls amount from the owner's external holdings into
	// engine custody.
	TransferFrom(owner string, amt amount.Amount) error

	// Transfer releases amount from engine custody back to the recipient.
	Transfer(recipient string, amt amount.Amount) error
}

// CustodyBank resolves the custodian responsible for an external asset.
type CustodyBank interface {
	Custodian(assetID string) (Custodian, bool)
}

// StaticCustodyBank is a CustodyBank backed by a fixed map, sufficient for
// a single-process deployment where custodians are registered at startup.
type StaticCustodyBank map[string]Custodian

func (b StaticCustodyBank) Custodian(assetID string) (Custodian, bool) {
	c, ok := b[assetID]
	return c, ok
}

// RevenueSink receives slot-purchase payments. The default sink keeps a
// running treasury total inside the engine.
type RevenueSink interface {
	ReceivePayment(from string, amt amount.Amount) error
}
