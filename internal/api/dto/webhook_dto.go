package dto

import "encoding/xml"

// TwiMLResponse is the XML body Twilio expects from a messaging webhook.
type TwiMLResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// Render serializes the TwiML document with the XML header.
func (r TwiMLResponse) Render() (string, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return "", err
	}
	return xml.Header + string(body), nil
}
